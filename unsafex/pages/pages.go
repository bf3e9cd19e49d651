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

// Package pages provides page providers: sources of page-aligned memory regions
// that are handed out and taken back whole.
package pages

import (
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
)

// DefaultPageSize is the page size used by Heap when none is given.
const DefaultPageSize = 4096

var (
	// ErrBadSize is returned when a size is not a positive multiple of the page size.
	ErrBadSize = errors.New("pages: size must be a positive multiple of the page size")

	// ErrNotMapped is returned by Unmap for a region that was not returned by Map.
	ErrNotMapped = errors.New("pages: region not mapped")

	// ErrExhausted is returned by Map when the provider has no memory left.
	ErrExhausted = errors.New("pages: out of memory")
)

// Provider hands out and reclaims page-aligned regions.
//
// Map returns a region of exactly size bytes starting at a page-aligned address.
// The content of the region is unspecified. Unmap must be called with the exact
// address and size of a region returned by Map.
type Provider interface {
	Map(size int) (unsafe.Pointer, error)
	Unmap(p unsafe.Pointer, size int) error
	PageSize() int
}

func checkSize(size, pageSize int) error {
	if size <= 0 || size%pageSize != 0 {
		return errors.Wrapf(ErrBadSize, "size %d, page size %d", size, pageSize)
	}
	return nil
}

// Heap is a Provider backed by Go heap buffers from mcache.
//
// Each region over-allocates one page and is aligned up inside its buffer,
// so the page size may be any power of two. The buffer stays referenced by
// Heap until Unmap, which returns it to mcache.
type Heap struct {
	pageSize int
	limit    int
	mapped   int

	// aligned address -> raw buffer
	regions *swiss.Map[uintptr, []byte]
}

var _ Provider = &Heap{}

// NewHeap creates a Heap with the given page size.
// pageSize must be a power of two.
func NewHeap(pageSize int) (*Heap, error) {
	if pageSize <= 0 || pageSize&(pageSize-1) != 0 {
		return nil, errors.Newf("pages: page size must be a power of two, got %d", pageSize)
	}
	return &Heap{
		pageSize: pageSize,
		regions:  swiss.NewMap[uintptr, []byte](16),
	}, nil
}

// SetLimit caps the bytes Heap keeps mapped at the same time.
// Map fails with ErrExhausted once the cap would be exceeded. 0 means no cap.
func (h *Heap) SetLimit(n int) {
	h.limit = n
}

// PageSize implements Provider.
func (h *Heap) PageSize() int { return h.pageSize }

// Mapped returns the bytes currently mapped.
func (h *Heap) Mapped() int { return h.mapped }

// Map implements Provider.
func (h *Heap) Map(size int) (unsafe.Pointer, error) {
	if err := checkSize(size, h.pageSize); err != nil {
		return nil, err
	}
	if h.limit > 0 && h.mapped+size > h.limit {
		return nil, errors.Wrapf(ErrExhausted, "map %d bytes with %d of %d in use", size, h.mapped, h.limit)
	}
	raw := mcache.Malloc(size + h.pageSize)
	base := unsafe.Pointer(unsafe.SliceData(raw))
	mask := uintptr(h.pageSize - 1)
	off := ((uintptr(base) + mask) &^ mask) - uintptr(base)
	p := unsafe.Add(base, off)

	h.regions.Put(uintptr(p), raw)
	h.mapped += size
	return p, nil
}

// Unmap implements Provider.
func (h *Heap) Unmap(p unsafe.Pointer, size int) error {
	raw, ok := h.regions.Get(uintptr(p))
	if !ok || len(raw) != size+h.pageSize {
		return errors.Wrapf(ErrNotMapped, "unmap %p (%d bytes)", p, size)
	}
	h.regions.Delete(uintptr(p))
	h.mapped -= size
	mcache.Free(raw)
	return nil
}
