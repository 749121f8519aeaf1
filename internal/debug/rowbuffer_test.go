// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowBuffer_AppendPrepend(t *testing.T) {
	b := newRowBuffer(2)

	b.Append(intRow(2))
	b.Append(intRow(3))
	b.Prepend(intRow(1))
	b.Append(intRow(4))
	b.Prepend(intRow(0))

	require.Equal(t, 5, b.Len())
	assert.Equal(t, intRows(0, 1, 2, 3, 4), b.Rows())
	assert.Equal(t, intRow(0), b.Row(0))
	assert.Equal(t, intRow(4), b.Row(4))
}

func TestRowBuffer_RemoveOldest(t *testing.T) {
	b := newRowBuffer(3)
	for i := 1; i <= 3; i++ {
		b.Prepend(intRow(i))
	}
	require.Equal(t, intRows(3, 2, 1), b.Rows())

	b.RemoveOldest()
	assert.Equal(t, intRows(3, 2), b.Rows())

	b.RemoveOldest()
	b.RemoveOldest()
	assert.Equal(t, 0, b.Len())

	b.RemoveOldest()
	assert.Equal(t, 0, b.Len(), "no-op on empty buffer")
}

func TestRowBuffer_SlidingWindowWraps(t *testing.T) {
	b := newRowBuffer(4)
	for i := 1; i <= 20; i++ {
		b.Prepend(intRow(i))
		if b.Len() > 3 {
			b.RemoveOldest()
		}
	}
	assert.Equal(t, intRows(20, 19, 18), b.Rows())
	assert.Len(t, b.ring, 4, "window never grows past its capacity")
}

func TestRowBuffer_Set(t *testing.T) {
	b := newRowBuffer(1)
	b.Append(intRow(1))
	b.Set(0, intRow(9))
	assert.Equal(t, intRows(9), b.Rows())
}

func TestRowBuffer_RowsIsCopy(t *testing.T) {
	b := newRowBuffer(2)
	b.Append(intRow(1))

	rows := b.Rows()
	rows[0] = intRow(42)
	assert.Equal(t, intRow(1), b.Row(0))
}

func TestRowBuffer_OutOfRange(t *testing.T) {
	b := newRowBuffer(2)
	assert.Panics(t, func() { b.Row(0) })
	assert.Panics(t, func() { b.Set(-1, intRow(1)) })
}

func TestRowBuffer_ZeroValue(t *testing.T) {
	var b RowBuffer
	assert.Empty(t, b.Rows())
	assert.Nil(t, b.Meta())

	b.Prepend(intRow(1))
	b.SetMeta(col0Meta)
	assert.Equal(t, intRows(1), b.Rows())
	assert.Same(t, col0Meta, b.Meta())
}
