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

import "github.com/cockroachdb/errors"

var (
	// ErrOutOfMemory indicates the page provider could not supply a chunk.
	// The provider's error is attached as a secondary error.
	ErrOutOfMemory = errors.New("malloc: out of memory")

	// ErrInvalidSize indicates a negative allocation size.
	ErrInvalidSize = errors.New("malloc: invalid size")

	// ErrNotInitialized is returned by the package level functions before Init.
	ErrNotInitialized = errors.New("malloc: Init not called")
)
