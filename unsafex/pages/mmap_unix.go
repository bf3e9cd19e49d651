//go:build unix

/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pages

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Mmap is a Provider backed by anonymous private memory maps.
type Mmap struct {
	pageSize int
}

var _ Provider = &Mmap{}

// NewMmap creates a Mmap using the system page size.
func NewMmap() *Mmap {
	return &Mmap{pageSize: unix.Getpagesize()}
}

// Default returns the provider used when none is configured.
func Default() Provider {
	return NewMmap()
}

// PageSize implements Provider.
func (m *Mmap) PageSize() int { return m.pageSize }

// Map implements Provider.
func (m *Mmap) Map(size int) (unsafe.Pointer, error) {
	if err := checkSize(size, m.pageSize); err != nil {
		return nil, err
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		if errors.Is(err, unix.ENOMEM) {
			return nil, errors.Wrapf(ErrExhausted, "mmap %d bytes: %v", size, err)
		}
		return nil, errors.Wrapf(err, "pages: mmap %d bytes", size)
	}
	return unsafe.Pointer(unsafe.SliceData(b)), nil
}

// Unmap implements Provider.
func (m *Mmap) Unmap(p unsafe.Pointer, size int) error {
	if p == nil {
		return errors.Wrap(ErrNotMapped, "unmap nil")
	}
	if err := checkSize(size, m.pageSize); err != nil {
		return err
	}
	// x/sys/unix tracks mappings by their last byte, so the rebuilt slice
	// only matches when p and size are exactly those returned by Map.
	err := unix.Munmap(unsafe.Slice((*byte)(p), size))
	if errors.Is(err, unix.EINVAL) {
		return errors.Wrapf(ErrNotMapped, "unmap %p (%d bytes)", p, size)
	}
	if err != nil {
		return errors.Wrapf(err, "pages: munmap %d bytes", size)
	}
	return nil
}
