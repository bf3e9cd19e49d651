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
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHeap(t *testing.T) {
	tests := []struct {
		pageSize int
		wantErr  bool
	}{
		{4096, false},
		{16384, false},
		{64, false},
		{0, true},
		{-4096, true},
		{3000, true},
	}
	for _, tt := range tests {
		_, err := NewHeap(tt.pageSize)
		if tt.wantErr {
			assert.Error(t, err, "pageSize=%d", tt.pageSize)
		} else {
			assert.NoError(t, err, "pageSize=%d", tt.pageSize)
		}
	}
}

func TestHeapMapUnmap(t *testing.T) {
	h, err := NewHeap(DefaultPageSize)
	require.NoError(t, err)
	require.Equal(t, DefaultPageSize, h.PageSize())

	p, err := h.Map(3 * DefaultPageSize)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Zero(t, uintptr(p)%DefaultPageSize)
	assert.Equal(t, 3*DefaultPageSize, h.Mapped())

	// the whole region is writable
	b := unsafe.Slice((*byte)(p), 3*DefaultPageSize)
	for i := range b {
		b[i] = byte(i)
	}
	for i := range b {
		require.Equal(t, byte(i), b[i])
	}

	q, err := h.Map(DefaultPageSize)
	require.NoError(t, err)
	assert.NotEqual(t, p, q)
	assert.Equal(t, 4*DefaultPageSize, h.Mapped())

	require.NoError(t, h.Unmap(p, 3*DefaultPageSize))
	require.NoError(t, h.Unmap(q, DefaultPageSize))
	assert.Equal(t, 0, h.Mapped())
}

func TestHeapBadSize(t *testing.T) {
	h, err := NewHeap(DefaultPageSize)
	require.NoError(t, err)

	for _, sz := range []int{0, -DefaultPageSize, 100, DefaultPageSize + 1} {
		_, err := h.Map(sz)
		assert.True(t, errors.Is(err, ErrBadSize), "size=%d", sz)
	}
}

func TestHeapUnmapNotMapped(t *testing.T) {
	h, err := NewHeap(DefaultPageSize)
	require.NoError(t, err)

	p, err := h.Map(DefaultPageSize)
	require.NoError(t, err)

	// wrong size
	err = h.Unmap(p, 2*DefaultPageSize)
	assert.True(t, errors.Is(err, ErrNotMapped))

	require.NoError(t, h.Unmap(p, DefaultPageSize))

	// double unmap
	err = h.Unmap(p, DefaultPageSize)
	assert.True(t, errors.Is(err, ErrNotMapped))
}

func TestHeapLimit(t *testing.T) {
	h, err := NewHeap(DefaultPageSize)
	require.NoError(t, err)
	h.SetLimit(2 * DefaultPageSize)

	p, err := h.Map(2 * DefaultPageSize)
	require.NoError(t, err)

	_, err = h.Map(DefaultPageSize)
	assert.True(t, errors.Is(err, ErrExhausted))

	require.NoError(t, h.Unmap(p, 2*DefaultPageSize))
	q, err := h.Map(DefaultPageSize)
	require.NoError(t, err)
	require.NoError(t, h.Unmap(q, DefaultPageSize))
}

func TestDefault(t *testing.T) {
	p := Default()
	require.NotNil(t, p)
	ps := p.PageSize()
	require.Greater(t, ps, 0)
	require.Zero(t, ps&(ps-1))

	m, err := p.Map(ps)
	require.NoError(t, err)
	assert.Zero(t, uintptr(m)%uintptr(ps))
	*(*uint64)(m) = 42
	require.NoError(t, p.Unmap(m, ps))
}
