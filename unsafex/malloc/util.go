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

import "golang.org/x/exp/constraints"

// alignUp rounds v up to a multiple of a, which must be a power of two.
func alignUp[T constraints.Integer](v, a T) T {
	return (v + a - 1) &^ (a - 1)
}

func isPow2[T constraints.Integer](v T) bool {
	return v > 0 && v&(v-1) == 0
}
