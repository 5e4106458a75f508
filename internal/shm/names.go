package shm

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	uuid "github.com/satori/go.uuid"
)

// names derives every filesystem/shm identifier for one bus from its bus
// name and a per-connection id, grounded directly in original_source's
// make_names/sanitize_name/fnv1a_32/hex8 (shm_transport.cc): a sanitized
// base name, hashed to keep identifiers short and filesystem-safe, then
// combined with 8 hex chars of the connection id for per-dial uniqueness.
type names struct {
	base           string
	connID         string
	shmPath        string
	bootstrapPath  string
}

func sanitizeName(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "duct"
	}
	return string(out)
}

func fnv1a32(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// newConnID generates a 16-hex-character (8 byte) connection id, the Go
// equivalent of the original's random_conn_id_hex16. The randomness comes
// from a v4 UUID, the same request-id source paypal-junodb's proto package
// uses, truncated to the 8 bytes the bootstrap handshake actually needs.
func newConnID() (string, error) {
	id := uuid.NewV4()
	return hex.EncodeToString(id.Bytes()[:8]), nil
}

func shmBaseDir() string {
	if fi, err := os.Stat("/dev/shm"); err == nil && fi.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

// makeNames mirrors original_source's make_names: a stable 8-hex-char hash
// of the sanitized bus name, combined with the first 8 hex chars of the
// connection id, to produce short, collision-resistant identifiers.
func makeNames(busName, connID string) names {
	base := sanitizeName(busName)
	hash8 := fmt.Sprintf("%08x", fnv1a32(base))
	conn8 := connID
	if len(conn8) > 8 {
		conn8 = conn8[:8]
	}
	prefix := "d" + hash8 + conn8

	return names{
		base:          base,
		connID:        connID,
		shmPath:       filepath.Join(shmBaseDir(), prefix+"m"),
		bootstrapPath: filepath.Join(os.TempDir(), "duct_shm_"+hash8+".sock"),
	}
}
