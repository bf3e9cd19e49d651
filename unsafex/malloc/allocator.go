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
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"

	"github.com/cloudwego/tagmalloc/unsafex/pages"
)

const (
	// DefaultShrinkPages is the default chunk size, in pages, from which a
	// fully free chunk is returned to the provider.
	DefaultShrinkPages = 10

	// DefaultGrowthCapPages is the default chunk size, in pages, up to which
	// chunk sizes keep doubling.
	DefaultGrowthCapPages = 60

	// maxRequest keeps every size computation far from overflow.
	maxRequest = math.MaxInt >> 4
)

// PageProvider is where an Allocator gets its memory from.
// pages.Mmap and pages.Heap implement it.
type PageProvider interface {
	// Map returns a page-aligned region of size bytes. size is a multiple of PageSize.
	Map(size int) (unsafe.Pointer, error)
	// Unmap releases a region returned by Map.
	Unmap(p unsafe.Pointer, size int) error
	// PageSize returns the allocation granularity of Map.
	PageSize() int
}

// Option ...
type Option struct {
	// Provider supplies the chunks. pages.Default() is used if nil.
	Provider PageProvider

	// ShrinkPages is the chunk size, in pages, from which a chunk is returned
	// to Provider as soon as all its memory is free. 0 never returns chunks.
	//
	// The whole chunk is compared, overhead included, not its free block:
	// a chunk of exactly ShrinkPages pages is returned.
	ShrinkPages int

	// GrowthCapPages bounds the doubling of chunk sizes, in pages.
	GrowthCapPages int

	// Logger receives debug lines on chunk map and unmap. nil disables logging.
	Logger *slog.Logger
}

// DefaultOption returns the default values of Option.
func DefaultOption() *Option {
	return &Option{
		ShrinkPages:    DefaultShrinkPages,
		GrowthCapPages: DefaultGrowthCapPages,
	}
}

// Allocator is a first-fit allocator over chunks of pages.
//
// Blocks carry boundary tags, free blocks are kept in one explicit free list,
// and freed blocks are merged with their free neighbors right away.
//
// An Allocator is not safe for concurrent use, callers must serialize access.
type Allocator struct {
	provider  PageProvider
	pageSize  int
	growthCap int
	shrinkAt  int
	logger    *slog.Logger

	free      freeList
	lastChunk int

	// chunk base address -> chunk
	chunks *swiss.Map[uintptr, *chunk]
}

// NewAllocator creates an initialized Allocator. opt may be nil.
func NewAllocator(opt *Option) (*Allocator, error) {
	if opt == nil {
		opt = DefaultOption()
	}
	provider := opt.Provider
	if provider == nil {
		provider = pages.Default()
	}
	pageSize := provider.PageSize()
	if !isPow2(pageSize) || pageSize < ChunkOverhead+minBlockSize {
		return nil, errors.Newf("malloc: page size must be a power of two >= %d, got %d",
			ChunkOverhead+minBlockSize, pageSize)
	}
	if opt.GrowthCapPages < 1 {
		return nil, errors.Newf("malloc: GrowthCapPages must be positive, got %d", opt.GrowthCapPages)
	}
	if opt.ShrinkPages < 0 {
		return nil, errors.Newf("malloc: ShrinkPages must not be negative, got %d", opt.ShrinkPages)
	}
	a := &Allocator{
		provider:  provider,
		pageSize:  pageSize,
		growthCap: opt.GrowthCapPages * pageSize,
		shrinkAt:  opt.ShrinkPages * pageSize,
		logger:    opt.Logger,
	}
	if err := a.Init(); err != nil {
		return nil, err
	}
	return a, nil
}

// Init resets the allocator to its initial state: no free blocks, no chunks
// and a fresh growth tracker. Chunks mapped before are not unmapped, use Close
// for that.
func (a *Allocator) Init() error {
	a.free.reset()
	a.lastChunk = 0
	a.chunks = swiss.NewMap[uintptr, *chunk](8)
	return nil
}

// PageSize returns the page size of the provider.
func (a *Allocator) PageSize() int { return a.pageSize }

// Alloc returns a pointer to at least size bytes, aligned to Alignment.
// Alloc(0) returns a valid minimum block.
//
// The memory is not zeroed. The error is ErrOutOfMemory when no chunk could
// be mapped, and ErrInvalidSize for a negative size.
func (a *Allocator) Alloc(size int) (unsafe.Pointer, error) {
	if size < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "size %d", size)
	}
	if size > maxRequest {
		return nil, errors.Wrapf(ErrOutOfMemory, "size %d", size)
	}
	need := blockFor(size)

	bp := a.free.findFit(need)
	if bp == nil {
		var err error
		if bp, err = a.extend(need); err != nil {
			return nil, err
		}
	}
	a.place(bp, need)

	debugValidate(a)
	return bp, nil
}

// Release returns memory obtained from Alloc. Release(nil) is a no-op.
//
// p must come from Alloc on this Allocator and must not be released twice.
// This is not checked.
func (a *Allocator) Release(p unsafe.Pointer) {
	if p == nil {
		return
	}
	setBlock(p, blockSize(p), false)
	bp := a.coalesce(p)

	if a.shrinkAt > 0 {
		if c := a.soleBlockOf(bp); c != nil && c.size >= a.shrinkAt {
			a.free.remove(bp)
			if err := a.shrink(c); err != nil {
				a.warn("malloc: keeping chunk after unmap failure",
					slog.Int("size", c.size), slog.Any("error", err))
				a.free.insert(bp)
			}
		}
	}

	debugValidate(a)
}

// Malloc is like Alloc but returns a slice of len size.
// The cap of the slice is the usable size of the block.
func (a *Allocator) Malloc(size int) ([]byte, error) {
	p, err := a.Alloc(size)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), blockSize(p)-tagOverhead)[:size], nil
}

// Free releases a slice returned by Malloc.
//
// IMPORTANT: buf must be the original slice returned by Malloc, or a reslice
// starting at the same element. buf[n:] corrupts the allocator.
func (a *Allocator) Free(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	a.Release(unsafe.Pointer(unsafe.SliceData(buf)))
}

// Close unmaps every chunk and resets the allocator.
// All memory obtained from it becomes invalid.
func (a *Allocator) Close() error {
	var cs []*chunk
	a.chunks.Iter(func(_ uintptr, c *chunk) bool {
		cs = append(cs, c)
		return false
	})
	var errs error
	for _, c := range cs {
		if err := a.provider.Unmap(c.base, c.size); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	if err := a.Init(); err != nil {
		return err
	}
	return errs
}

func (a *Allocator) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func (a *Allocator) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}

var std *Allocator

// Init initializes the default allocator used by the package level functions.
// It must be called once before any of them. Calling it again resets the
// default allocator like (*Allocator).Init.
func Init() error {
	if std != nil {
		return std.Init()
	}
	a, err := NewAllocator(nil)
	if err != nil {
		return err
	}
	std = a
	return nil
}

// Alloc calls Alloc on the default allocator.
func Alloc(size int) (unsafe.Pointer, error) {
	if std == nil {
		return nil, ErrNotInitialized
	}
	return std.Alloc(size)
}

// Release calls Release on the default allocator.
func Release(p unsafe.Pointer) {
	if std != nil {
		std.Release(p)
	}
}

// Malloc calls Malloc on the default allocator.
func Malloc(size int) ([]byte, error) {
	if std == nil {
		return nil, ErrNotInitialized
	}
	return std.Malloc(size)
}

// Free calls Free on the default allocator.
func Free(buf []byte) {
	if std != nil {
		std.Free(buf)
	}
}
