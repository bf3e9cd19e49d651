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

// place turns the free block bp into an allocated block of at least size bytes.
// The tail is split off as a new free block only if it is larger than
// minBlockSize, otherwise the whole block is handed out.
func (a *Allocator) place(bp unsafe.Pointer, size int) {
	total := blockSize(bp)
	a.free.remove(bp)

	rest := total - size
	if rest > minBlockSize {
		setBlock(bp, size, true)
		next := unsafe.Add(bp, size)
		setBlock(next, rest, false)
		a.free.insert(next)
		return
	}
	setBlock(bp, total, true)
}

// coalesce merges the just freed block bp with its free physical neighbors
// and returns the resulting block, which is always in the free list.
//
// A free predecessor is already listed, so it grows in place and is not
// inserted again. A free successor is always unlinked.
func (a *Allocator) coalesce(bp unsafe.Pointer) unsafe.Pointer {
	prev, next := prevTag(bp), nextTag(bp)
	size := blockSize(bp)

	switch {
	case tagAlloc(prev) && tagAlloc(next):
		a.free.insert(bp)

	case tagAlloc(prev):
		a.free.remove(nextBlock(bp))
		size += tagSize(next)
		setBlock(bp, size, false)
		a.free.insert(bp)

	case tagAlloc(next):
		bp = prevBlock(bp)
		setBlock(bp, size+tagSize(prev), false)

	default:
		a.free.remove(nextBlock(bp))
		size += tagSize(prev) + tagSize(next)
		bp = prevBlock(bp)
		setBlock(bp, size, false)
	}
	return bp
}
