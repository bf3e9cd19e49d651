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

package pagetest

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewHeap(t, 4096)
	assert.Equal(t, 4096, r.PageSize())

	p, err := r.Map(8192)
	require.NoError(t, err)
	q, err := r.Map(4096)
	require.NoError(t, err)
	assert.Equal(t, []int{8192, 4096}, r.MapSizes())
	assert.Equal(t, 2, r.LiveCount())
	assert.True(t, r.IsLive(uintptr(p)))
	assert.True(t, r.IsLive(uintptr(q)))

	require.NoError(t, r.Unmap(p, 8192))
	assert.False(t, r.IsLive(uintptr(p)))
	assert.Equal(t, 1, r.LiveCount())
	assert.Equal(t, []Region{{Addr: uintptr(p), Size: 8192}}, r.Unmaps())

	boom := errors.New("boom")
	r.FailUnmap(boom)
	assert.ErrorIs(t, r.Unmap(q, 4096), boom)
	assert.True(t, r.IsLive(uintptr(q)))
	r.FailUnmap(nil)
	require.NoError(t, r.Unmap(q, 4096))
	assert.Zero(t, r.LiveCount())

	r.FailMap(boom)
	_, err = r.Map(4096)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, r.Maps(), 2)
}
