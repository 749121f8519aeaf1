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
	"github.com/tombee/sluice/pkg/row"
)

// RowBuffer is an ordered, zero-indexed sequence of captured rows together
// with the schema that describes them. It is backed by a growable ring so
// that inserting at either end and removing the oldest row are O(1)
// amortized.
//
// The oldest row is always at the highest index: preview buffers append
// (chronological order) and breakpoint buffers prepend (newest first).
//
// A RowBuffer is not safe for concurrent use; its StepDebug serializes
// access.
type RowBuffer struct {
	meta *row.Meta
	ring []row.Row
	head int
	n    int
}

func newRowBuffer(capacity int) RowBuffer {
	if capacity < 1 {
		capacity = 1
	}
	// Large previews grow on demand.
	if capacity > 1024 {
		capacity = 1024
	}
	return RowBuffer{ring: make([]row.Row, capacity)}
}

// Len returns the number of buffered rows.
func (b *RowBuffer) Len() int {
	return b.n
}

// Meta returns the schema of the most recently captured row.
func (b *RowBuffer) Meta() *row.Meta {
	return b.meta
}

// SetMeta stores the schema of the rows being captured.
func (b *RowBuffer) SetMeta(meta *row.Meta) {
	b.meta = meta
}

// Append adds r after the last row.
func (b *RowBuffer) Append(r row.Row) {
	b.grow()
	b.ring[b.slot(b.n)] = r
	b.n++
}

// Prepend inserts r at index 0.
func (b *RowBuffer) Prepend(r row.Row) {
	b.grow()
	b.head = (b.head - 1 + len(b.ring)) % len(b.ring)
	b.ring[b.head] = r
	b.n++
}

// RemoveOldest drops the row at the highest index. It is a no-op on an
// empty buffer.
func (b *RowBuffer) RemoveOldest() {
	if b.n == 0 {
		return
	}
	b.ring[b.slot(b.n-1)] = nil
	b.n--
}

// Row returns the row at index i. It panics if i is out of range.
func (b *RowBuffer) Row(i int) row.Row {
	b.check(i)
	return b.ring[b.slot(i)]
}

// Set replaces the row at index i. It panics if i is out of range.
func (b *RowBuffer) Set(i int, r row.Row) {
	b.check(i)
	b.ring[b.slot(i)] = r
}

// Rows returns the buffered rows in index order. The returned slice is a
// copy; the rows themselves are the captured clones and must not be
// modified.
func (b *RowBuffer) Rows() []row.Row {
	out := make([]row.Row, b.n)
	for i := range out {
		out[i] = b.ring[b.slot(i)]
	}
	return out
}

func (b *RowBuffer) slot(i int) int {
	return (b.head + i) % len(b.ring)
}

func (b *RowBuffer) check(i int) {
	if i < 0 || i >= b.n {
		panic("debug: row buffer index out of range")
	}
}

// grow makes room for one more row, re-packing the ring from index 0.
func (b *RowBuffer) grow() {
	if len(b.ring) == 0 {
		b.ring = make([]row.Row, 4)
		return
	}
	if b.n < len(b.ring) {
		return
	}
	next := make([]row.Row, 2*len(b.ring))
	for i := 0; i < b.n; i++ {
		next[i] = b.ring[b.slot(i)]
	}
	b.ring = next
	b.head = 0
}
