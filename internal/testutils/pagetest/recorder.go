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

// Package pagetest provides a page provider double that records calls.
package pagetest

import (
	"testing"
	"unsafe"

	"github.com/dolthub/swiss"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/tagmalloc/unsafex/pages"
)

// Region is one mapped region.
type Region struct {
	Addr uintptr
	Size int
}

// Recorder wraps a pages.Provider and records every successful Map and Unmap.
// Map and Unmap failures can be injected.
type Recorder struct {
	inner pages.Provider

	maps   []Region
	unmaps []Region
	live   *swiss.Map[uintptr, int]

	mapErr   error
	unmapErr error
}

// New wraps inner.
func New(inner pages.Provider) *Recorder {
	return &Recorder{inner: inner, live: swiss.NewMap[uintptr, int](8)}
}

// NewHeap returns a Recorder over a pages.Heap with the given page size.
func NewHeap(t testing.TB, pageSize int) *Recorder {
	t.Helper()
	h, err := pages.NewHeap(pageSize)
	require.NoError(t, err)
	return New(h)
}

// PageSize implements pages.Provider.
func (r *Recorder) PageSize() int { return r.inner.PageSize() }

// Map implements pages.Provider.
func (r *Recorder) Map(size int) (unsafe.Pointer, error) {
	if r.mapErr != nil {
		return nil, r.mapErr
	}
	p, err := r.inner.Map(size)
	if err != nil {
		return nil, err
	}
	r.maps = append(r.maps, Region{Addr: uintptr(p), Size: size})
	r.live.Put(uintptr(p), size)
	return p, nil
}

// Unmap implements pages.Provider.
func (r *Recorder) Unmap(p unsafe.Pointer, size int) error {
	if r.unmapErr != nil {
		return r.unmapErr
	}
	if err := r.inner.Unmap(p, size); err != nil {
		return err
	}
	r.unmaps = append(r.unmaps, Region{Addr: uintptr(p), Size: size})
	r.live.Delete(uintptr(p))
	return nil
}

// FailMap makes every following Map return err. nil restores normal behavior.
func (r *Recorder) FailMap(err error) { r.mapErr = err }

// FailUnmap makes every following Unmap return err. nil restores normal behavior.
func (r *Recorder) FailUnmap(err error) { r.unmapErr = err }

// Maps returns the successful Map calls in order.
func (r *Recorder) Maps() []Region { return r.maps }

// Unmaps returns the successful Unmap calls in order.
func (r *Recorder) Unmaps() []Region { return r.unmaps }

// MapSizes returns the sizes of the successful Map calls in order.
func (r *Recorder) MapSizes() []int {
	sizes := make([]int, len(r.maps))
	for i, m := range r.maps {
		sizes[i] = m.Size
	}
	return sizes
}

// IsLive reports whether the region starting at p is mapped.
func (r *Recorder) IsLive(p uintptr) bool {
	return r.live.Has(p)
}

// LiveCount returns the number of mapped regions.
func (r *Recorder) LiveCount() int { return r.live.Count() }
