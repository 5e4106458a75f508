// Package address parses duct's scheme-qualified address grammar (spec.md
// §6). It is an external collaborator per spec.md §1 — kept deliberately
// minimal, with no DNS resolution policy or retry semantics of its own.
package address

import (
	"strconv"
	"strings"

	"github.com/cuihairu/duct/status"
)

// Scheme identifies a duct transport.
type Scheme int

const (
	Unknown Scheme = iota
	TCP
	UDS
	Pipe
	SHM
)

func (s Scheme) String() string {
	switch s {
	case TCP:
		return "tcp"
	case UDS:
		return "uds"
	case Pipe:
		return "pipe"
	case SHM:
		return "shm"
	default:
		return "unknown"
	}
}

// Address is the parsed form of an address string.
type Address struct {
	Scheme Scheme
	Raw    string

	// Valid when Scheme == TCP.
	Host string
	Port uint16

	// Valid when Scheme is UDS, Pipe, or SHM: the uds path or shm/pipe name.
	Name string
}

// Parse validates and decodes a duct address string (spec.md §6):
//
//	tcp://HOST:PORT or bare HOST:PORT (scheme defaults to tcp)
//	uds://PATH
//	pipe://NAME
//	shm://NAME
func Parse(raw string) (Address, *status.Status) {
	scheme, rest, hasScheme := splitScheme(raw)
	if !hasScheme {
		scheme = "tcp"
		rest = raw
	}

	switch scheme {
	case "tcp":
		host, port, st := parseHostPort(rest)
		if !st.Ok() {
			return Address{}, st
		}
		return Address{Scheme: TCP, Raw: raw, Host: host, Port: port}, nil
	case "uds":
		if rest == "" {
			return Address{}, status.InvalidArgumentf("uds address missing path")
		}
		return Address{Scheme: UDS, Raw: raw, Name: rest}, nil
	case "pipe":
		if rest == "" {
			return Address{}, status.InvalidArgumentf("pipe address missing name")
		}
		return Address{Scheme: Pipe, Raw: raw, Name: rest}, nil
	case "shm":
		if rest == "" {
			return Address{}, status.InvalidArgumentf("shm address missing name")
		}
		return Address{Scheme: SHM, Raw: raw, Name: rest}, nil
	default:
		return Address{}, status.NotSupportedf("unsupported scheme: %s", scheme)
	}
}

func splitScheme(raw string) (scheme, rest string, ok bool) {
	idx := strings.Index(raw, "://")
	if idx < 0 {
		return "", raw, false
	}
	return raw[:idx], raw[idx+3:], true
}

func parseHostPort(rest string) (string, uint16, *status.Status) {
	host, portStr, ok := splitHostPort(rest)
	if !ok {
		return "", 0, status.InvalidArgumentf("malformed host:port: %q", rest)
	}
	if host == "" {
		host = "127.0.0.1"
	}
	if portStr == "" {
		return "", 0, status.InvalidArgumentf("missing port in %q", rest)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, status.InvalidArgumentf("invalid port %q: %s", portStr, err)
	}
	return host, uint16(port), nil
}

// splitHostPort splits "host:port" on the last colon, tolerating bracketed
// IPv6 literals ("[::1]:9000") the way net.SplitHostPort does, without
// pulling in net just for this.
func splitHostPort(s string) (host, port string, ok bool) {
	if strings.HasPrefix(s, "[") {
		end := strings.Index(s, "]")
		if end < 0 {
			return "", "", false
		}
		host = s[1:end]
		remainder := s[end+1:]
		if !strings.HasPrefix(remainder, ":") {
			return "", "", false
		}
		return host, remainder[1:], true
	}
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+1:], true
}
