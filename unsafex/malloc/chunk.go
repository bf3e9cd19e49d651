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
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Chunk layout, by offset from the page-aligned base:
//
//	0       padding word
//	8       prologue header (16, allocated)
//	16      prologue footer (16, allocated)
//	24      header of the first block
//	32      first payload
//	...
//	size-8  epilogue header (0, allocated)
//
// The sentinels make every real block see allocated neighbors at the chunk
// edges, so coalescing never crosses a chunk.
const (
	prologueSize = 2 * wordSize

	// firstPayload is the offset of the first block's payload.
	firstPayload = wordSize + prologueSize + wordSize

	// ChunkOverhead is the bytes of a chunk not available to blocks.
	ChunkOverhead = wordSize + prologueSize + wordSize
)

type chunk struct {
	base unsafe.Pointer
	size int
}

func (c *chunk) first() unsafe.Pointer {
	return unsafe.Add(c.base, firstPayload)
}

// usable is the size of the block spanning the whole chunk.
func (c *chunk) usable() int {
	return c.size - ChunkOverhead
}

func (c *chunk) contains(p unsafe.Pointer) bool {
	start := uintptr(c.base)
	return uintptr(p) >= start && uintptr(p) < start+uintptr(c.size)
}

// format writes the sentinels and a single free block over the chunk
// and returns that block.
func (c *chunk) format() unsafe.Pointer {
	putTag(c.base, 0)
	putTag(unsafe.Add(c.base, wordSize), pack(prologueSize, true))
	putTag(unsafe.Add(c.base, 2*wordSize), pack(prologueSize, true))

	bp := c.first()
	setBlock(bp, c.usable(), false)

	putTag(unsafe.Add(c.base, c.size-wordSize), pack(0, true))
	return bp
}

// nextChunkSize picks the size of the next chunk able to hold a block of
// size bytes. The size doubles from one chunk to the next while it stays
// within growthCap; past that a request larger than the last chunk gets a
// chunk of its own exact size, and everything else reuses the last size.
//
// The chunk overhead is added before doubling, not after: doubling the last
// chunk already leaves room for it, so consecutive chunks are exactly 2x.
func (a *Allocator) nextChunkSize(size int) int {
	exact := alignUp(size+ChunkOverhead, a.pageSize)
	candidate := alignUp(max(2*a.lastChunk, size+ChunkOverhead), a.pageSize)
	switch {
	case candidate <= a.growthCap:
		return candidate
	case exact > a.lastChunk:
		return exact
	default:
		return a.lastChunk
	}
}

// extend maps a new chunk that fits a block of size bytes.
// The chunk's only block is pushed at the head of the free list and returned.
func (a *Allocator) extend(size int) (unsafe.Pointer, error) {
	n := a.nextChunkSize(size)
	base, err := a.provider.Map(n)
	if err != nil {
		return nil, errors.WithSecondaryError(
			errors.Wrapf(ErrOutOfMemory, "map %d bytes for a %d byte block", n, size), err)
	}
	a.lastChunk = n

	c := &chunk{base: base, size: n}
	a.chunks.Put(uintptr(base), c)
	bp := c.format()
	a.free.insert(bp)

	a.debug("malloc: chunk mapped", slog.Int("size", n), slog.Int("chunks", a.chunks.Count()))
	return bp, nil
}

// soleBlockOf returns the chunk whose only block is bp, or nil.
func (a *Allocator) soleBlockOf(bp unsafe.Pointer) *chunk {
	c, ok := a.chunks.Get(uintptr(unsafe.Add(bp, -firstPayload)))
	if !ok || blockSize(bp) != c.usable() {
		return nil
	}
	return c
}

// chunkOf returns the chunk containing p, or nil.
func (a *Allocator) chunkOf(p unsafe.Pointer) *chunk {
	var found *chunk
	a.chunks.Iter(func(_ uintptr, c *chunk) bool {
		if c.contains(p) {
			found = c
			return true
		}
		return false
	})
	return found
}

// shrink returns c to the provider. Its block must already be off the free list.
func (a *Allocator) shrink(c *chunk) error {
	if err := a.provider.Unmap(c.base, c.size); err != nil {
		return err
	}
	a.chunks.Delete(uintptr(c.base))
	a.debug("malloc: chunk unmapped", slog.Int("size", c.size), slog.Int("chunks", a.chunks.Count()))
	return nil
}
