//go:build !unix

package shm

import (
	"fmt"
	"os"
)

// The shared-memory transport is unix-only (spec.md §6 non-goals exclude a
// portable shm:// implementation); non-unix builds still need these symbols
// to exist so the package compiles, but every call fails.
func createMapping(path string) (*os.File, []byte, error) {
	return nil, nil, fmt.Errorf("shm transport not supported on this platform")
}

func openMapping(path string) (*os.File, []byte, error) {
	return nil, nil, fmt.Errorf("shm transport not supported on this platform")
}

func unmap(mem []byte) error { return nil }
