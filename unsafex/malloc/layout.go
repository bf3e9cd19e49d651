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

import "unsafe"

// Block layout. bp always points to the payload of a block:
//
//	bp-8          bp                          bp+size-16      bp+size-8
//	| header tag  | payload (or prev, next)   | footer tag    | next header
//
// A tag packs the block size (multiple of 16, includes both tags) with the
// allocated bit in bit 0.
const (
	wordSize = 8

	// Alignment is the alignment of every payload and every block size.
	Alignment = 16

	// tagOverhead is header + footer.
	tagOverhead = 2 * wordSize

	// minBlockSize fits both tags and the two free-list links.
	minBlockSize = tagOverhead + 2*wordSize

	sizeMask  = ^uint64(Alignment - 1)
	allocated = uint64(1)
)

func pack(size int, alloc bool) uint64 {
	v := uint64(size)
	if alloc {
		v |= allocated
	}
	return v
}

func getTag(p unsafe.Pointer) uint64 {
	return *(*uint64)(p)
}

func putTag(p unsafe.Pointer, v uint64) {
	*(*uint64)(p) = v
}

func tagSize(v uint64) int { return int(v & sizeMask) }

func tagAlloc(v uint64) bool { return v&allocated != 0 }

func header(bp unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(bp, -wordSize)
}

func footer(bp unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(bp, blockSize(bp)-tagOverhead)
}

// blockSize returns the size recorded in bp's header.
func blockSize(bp unsafe.Pointer) int {
	return tagSize(getTag(header(bp)))
}

func blockAlloc(bp unsafe.Pointer) bool {
	return tagAlloc(getTag(header(bp)))
}

// setBlock writes identical header and footer tags for a block of the given size.
func setBlock(bp unsafe.Pointer, size int, alloc bool) {
	v := pack(size, alloc)
	putTag(header(bp), v)
	putTag(unsafe.Add(bp, size-tagOverhead), v)
}

// prevTag returns the footer tag of the block physically before bp.
func prevTag(bp unsafe.Pointer) uint64 {
	return getTag(unsafe.Add(bp, -tagOverhead))
}

// nextTag returns the header tag of the block physically after bp.
func nextTag(bp unsafe.Pointer) uint64 {
	return getTag(unsafe.Add(bp, blockSize(bp)-wordSize))
}

// prevBlock must only be used when the previous block is a real block.
func prevBlock(bp unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(bp, -tagSize(prevTag(bp)))
}

// nextBlock must only be used when the next block is not the epilogue.
func nextBlock(bp unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(bp, blockSize(bp))
}

// blockFor returns the block size needed to serve a request of n bytes.
func blockFor(n int) int {
	size := alignUp(n+tagOverhead, Alignment)
	if size < minBlockSize {
		return minBlockSize
	}
	return size
}
