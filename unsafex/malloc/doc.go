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

// Package malloc implements a malloc/free style allocator over chunks of pages.
//
// Each chunk comes from a PageProvider and is laid out as a prologue sentinel,
// a run of blocks and an epilogue sentinel. Every block carries its size and
// allocated bit in a header and an identical footer (boundary tags), so both
// neighbors of a block are found in O(1). Free blocks are threaded on a single
// LIFO free list through their own payload, searched first-fit.
//
// Allocation splits the chosen free block when the tail is large enough to be
// a block of its own. Release merges the block with its free neighbors at once,
// and a chunk whose memory is entirely free is handed back to the provider when
// it is at least Option.ShrinkPages pages.
//
// Chunk sizes double from one chunk to the next, starting at one page, until
// they would exceed Option.GrowthCapPages pages.
//
// An Allocator is not safe for concurrent use.
//
// Usage:
//
//	a, err := malloc.NewAllocator(nil)
//	if err != nil {
//		return err
//	}
//	buf, err := a.Malloc(100)
//	if err != nil {
//		return err
//	}
//	// use buf ...
//	a.Free(buf)
package malloc
