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
)

// Validate walks every chunk and the free list and checks the heap invariants:
// sentinels in place, identical header and footer tags, aligned sizes, no two
// adjacent free blocks, and a free list holding exactly the free blocks.
// It is O(heap size) and meant for tests and debugging.
func (a *Allocator) Validate() error {
	var free int
	var err error
	a.chunks.Iter(func(_ uintptr, c *chunk) bool {
		var n int
		n, err = c.validate()
		free += n
		return err != nil
	})
	if err != nil {
		return err
	}

	listed := 0
	var prev unsafe.Pointer
	for bp := a.free.head; bp != nil; bp = nextFree(bp) {
		if listed == free {
			return errors.AssertionFailedf("malloc: free list is longer than the %d free blocks", free)
		}
		if prevFree(bp) != prev {
			return errors.AssertionFailedf("malloc: free block %p has a broken prev link", bp)
		}
		if blockAlloc(bp) {
			return errors.AssertionFailedf("malloc: allocated block %p is in the free list", bp)
		}
		if a.chunkOf(bp) == nil {
			return errors.AssertionFailedf("malloc: free block %p is outside every chunk", bp)
		}
		listed++
		prev = bp
	}
	if listed != free {
		return errors.AssertionFailedf("malloc: %d free blocks but %d in the free list", free, listed)
	}
	if listed != a.free.n {
		return errors.AssertionFailedf("malloc: free list holds %d blocks but counts %d", listed, a.free.n)
	}
	return nil
}

// validate walks the blocks of c and returns how many are free.
func (c *chunk) validate() (int, error) {
	if getTag(c.base) != 0 {
		return 0, errors.AssertionFailedf("malloc: chunk %p: padding word overwritten", c.base)
	}
	pro := pack(prologueSize, true)
	if getTag(unsafe.Add(c.base, wordSize)) != pro || getTag(unsafe.Add(c.base, 2*wordSize)) != pro {
		return 0, errors.AssertionFailedf("malloc: chunk %p: bad prologue", c.base)
	}

	end := uintptr(c.base) + uintptr(c.size)
	free := 0
	lastFree := false
	bp := c.first()
	for {
		v := getTag(header(bp))
		size := tagSize(v)
		if size == 0 {
			if !tagAlloc(v) || uintptr(bp) != end {
				return 0, errors.AssertionFailedf("malloc: chunk %p: bad epilogue at %p", c.base, bp)
			}
			return free, nil
		}
		if uintptr(bp)%Alignment != 0 || size < minBlockSize || uintptr(bp)+uintptr(size) > end {
			return 0, errors.AssertionFailedf("malloc: chunk %p: bad block %p of size %d", c.base, bp, size)
		}
		if getTag(footer(bp)) != v {
			return 0, errors.AssertionFailedf("malloc: chunk %p: block %p header and footer differ", c.base, bp)
		}
		if !tagAlloc(v) {
			if lastFree {
				return 0, errors.AssertionFailedf("malloc: chunk %p: adjacent free blocks at %p", c.base, bp)
			}
			free++
		}
		lastFree = !tagAlloc(v)
		bp = unsafe.Add(bp, size)
	}
}
