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

package malloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/cloudwego/tagmalloc/internal/testutils/pagetest"
)

const testPageSize = 4096

func newTestAllocator(t *testing.T) (*Allocator, *pagetest.Recorder) {
	t.Helper()
	return newTestAllocatorWithOption(t, &Option{
		ShrinkPages:    DefaultShrinkPages,
		GrowthCapPages: DefaultGrowthCapPages,
	})
}

func newTestAllocatorWithOption(t *testing.T, opt *Option) (*Allocator, *pagetest.Recorder) {
	t.Helper()
	rec, ok := opt.Provider.(*pagetest.Recorder)
	if !ok {
		rec = pagetest.NewHeap(t, testPageSize)
		opt.Provider = rec
	}
	a, err := NewAllocator(opt)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, rec
}

// freeBlocks returns the free list from head to tail.
func freeBlocks(a *Allocator) []unsafe.Pointer {
	var bps []unsafe.Pointer
	for bp := a.free.head; bp != nil; bp = nextFree(bp) {
		bps = append(bps, bp)
	}
	return bps
}

func freeSizes(a *Allocator) []int {
	var sizes []int
	for _, bp := range freeBlocks(a) {
		sizes = append(sizes, blockSize(bp))
	}
	return sizes
}

func overlap(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	aStart := uintptr(unsafe.Pointer(&a[0]))
	aEnd := aStart + uintptr(len(a))
	bStart := uintptr(unsafe.Pointer(&b[0]))
	bEnd := bStart + uintptr(len(b))
	return !(aEnd <= bStart || bEnd <= aStart)
}

func mustAlloc(t *testing.T, a *Allocator, size int) unsafe.Pointer {
	t.Helper()
	p, err := a.Alloc(size)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}
