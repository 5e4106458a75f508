// Package ductlog is the thin structured-logging façade every background
// worker in duct logs through. It wraps github.com/sirupsen/logrus, the
// logger dtn7-dtn7-gold uses throughout its own background components.
// Per spec.md §1, logging is an external collaborator mentioned only at
// its interface: nothing in the core depends on what, if anything, a
// caller configures here, and log output never influences a returned
// Status.
package ductlog

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once sync.Once
	base *logrus.Logger
)

func root() *logrus.Logger {
	once.Do(func() {
		base = logrus.New()
		base.SetOutput(os.Stderr)
		base.SetLevel(logrus.WarnLevel)
	})
	return base
}

// SetLevel adjusts the package-wide log level, e.g. "debug" during
// diagnostics. Unknown level strings are ignored.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	root().SetLevel(lvl)
}

// For returns a logger pre-tagged with the given component name, the way
// dtn7-dtn7-gold tags each CLA/agent with a "component" field.
func For(component string) *logrus.Entry {
	return root().WithField("component", component)
}
