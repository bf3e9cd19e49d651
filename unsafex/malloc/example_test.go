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

package malloc_test

import (
	"fmt"

	"github.com/cloudwego/tagmalloc/unsafex/malloc"
	"github.com/cloudwego/tagmalloc/unsafex/pages"
)

func ExampleAllocator() {
	h, err := pages.NewHeap(pages.DefaultPageSize)
	if err != nil {
		panic(err)
	}
	opt := malloc.DefaultOption()
	opt.Provider = h
	a, err := malloc.NewAllocator(opt)
	if err != nil {
		panic(err)
	}
	defer a.Close()

	buf, err := a.Malloc(100)
	if err != nil {
		panic(err)
	}
	copy(buf, "hello")
	fmt.Println(len(buf), cap(buf), string(buf[:5]))
	fmt.Println(h.Mapped())

	a.Free(buf)
	fmt.Println(a.Validate())
	// Output:
	// 100 112 hello
	// 4096
	// <nil>
}
