//go:build unix

package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// createMapping creates a new backing file at path, sized to ShmSize, and
// maps it shared+read-write. Grounded in markrussinovich-grpc-go-shmem's
// CreateSegment/mmapFile (shm_mmap_unix.go), generalized to use
// golang.org/x/sys/unix instead of raw syscall so the same call works
// across the unix-family build targets x/sys covers, not just
// linux/amd64+arm64.
func createMapping(path string) (*os.File, []byte, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("create shm file %s: %w", path, err)
	}
	if err := file.Truncate(int64(ShmSize)); err != nil {
		file.Close()
		os.Remove(path)
		return nil, nil, fmt.Errorf("truncate shm file: %w", err)
	}
	mem, err := unix.Mmap(int(file.Fd()), 0, ShmSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, nil, fmt.Errorf("mmap shm file: %w", err)
	}
	return file, mem, nil
}

// openMapping maps an existing backing file created by createMapping.
func openMapping(path string) (*os.File, []byte, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open shm file %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("stat shm file: %w", err)
	}
	if info.Size() < int64(ShmSize) {
		file.Close()
		return nil, nil, fmt.Errorf("shm file %s too small: %d bytes", path, info.Size())
	}
	mem, err := unix.Mmap(int(file.Fd()), 0, ShmSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("mmap shm file: %w", err)
	}
	return file, mem, nil
}

func unmap(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	return unix.Munmap(mem)
}
