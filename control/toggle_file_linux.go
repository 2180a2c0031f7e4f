//go:build linux
// +build linux

// File: control/toggle_file_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Memory-mapped control toggle counter. The node and the operator CLI
// map the same 8-byte file so commands cross the process boundary as
// plain atomic stores on shared memory.

package control

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/clusterseq/api"
)

// Ensure compile-time interface compliance.
var _ api.Counter = (*MappedToggle)(nil)

const mappedToggleLength = 8

// MappedToggle is an api.Counter backed by a shared file mapping.
type MappedToggle struct {
	file *os.File
	data []byte
	addr *int64
}

// OpenMappedToggle maps the counter file at path, creating and
// zero-extending it on first use.
func OpenMappedToggle(path string) (*MappedToggle, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open toggle file: %w", err)
	}
	if err := f.Truncate(mappedToggleLength); err != nil {
		f.Close()
		return nil, fmt.Errorf("size toggle file: %w", err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, mappedToggleLength,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("map toggle file: %w", err)
	}
	return &MappedToggle{
		file: f,
		data: data,
		addr: (*int64)(unsafe.Pointer(&data[0])),
	}, nil
}

// Get returns the current value.
func (m *MappedToggle) Get() int64 {
	return atomic.LoadInt64(m.addr)
}

// Set stores a new value.
func (m *MappedToggle) Set(v int64) {
	atomic.StoreInt64(m.addr, v)
}

// Increment adds one and returns the new value.
func (m *MappedToggle) Increment() int64 {
	return atomic.AddInt64(m.addr, 1)
}

// CompareAndSet swaps expected for update atomically.
func (m *MappedToggle) CompareAndSet(expected, update int64) bool {
	return atomic.CompareAndSwapInt64(m.addr, expected, update)
}

// Close unmaps the counter and closes the backing file.
func (m *MappedToggle) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	m.addr = nil
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	return err
}
