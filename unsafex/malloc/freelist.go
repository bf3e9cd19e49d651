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

// freeList is an unordered doubly linked list of free blocks.
// The links live in the first two payload words of each free block,
// so they are only valid while the block is free.
//
// Links are stored as plain integers. The words held user bytes before the
// block was freed, and a pointer store would hand that stale value to the
// write barrier.
type freeList struct {
	head unsafe.Pointer
	n    int
}

func prevFree(bp unsafe.Pointer) unsafe.Pointer {
	return linkPtr(*(*uintptr)(bp))
}

func nextFree(bp unsafe.Pointer) unsafe.Pointer {
	return linkPtr(*(*uintptr)(unsafe.Add(bp, wordSize)))
}

func setPrevFree(bp, p unsafe.Pointer) {
	*(*uintptr)(bp) = uintptr(p)
}

func setNextFree(bp, p unsafe.Pointer) {
	*(*uintptr)(unsafe.Add(bp, wordSize)) = uintptr(p)
}

// linkPtr turns a stored link back into a pointer. Every non-zero link
// addresses a block inside a chunk that is still mapped.
func linkPtr(v uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&v))
}

func (l *freeList) reset() {
	l.head = nil
	l.n = 0
}

// insert pushes bp at the head, so it is the first candidate of findFit.
func (l *freeList) insert(bp unsafe.Pointer) {
	setNextFree(bp, l.head)
	setPrevFree(bp, nil)
	if l.head != nil {
		setPrevFree(l.head, bp)
	}
	l.head = bp
	l.n++
}

func (l *freeList) remove(bp unsafe.Pointer) {
	prev, next := prevFree(bp), nextFree(bp)
	if prev == nil {
		l.head = next
	} else {
		setNextFree(prev, next)
	}
	if next != nil {
		setPrevFree(next, prev)
	}
	l.n--
}

// findFit returns the first block of at least size bytes, or nil.
func (l *freeList) findFit(size int) unsafe.Pointer {
	for bp := l.head; bp != nil; bp = nextFree(bp) {
		if blockSize(bp) >= size {
			return bp
		}
	}
	return nil
}
