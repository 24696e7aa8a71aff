// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package geometry implements the Geometry range type and the rounding
// arithmetic used to pick a concrete aligned sector from a range.
package geometry

import (
	"github.com/gpartitions/disklabel/dlerrors"
)

// Geometry is an inclusive range {start, length}, in sectors, from which the
// engine picks one concrete value, starting from the Midpoint; the MBR and
// GPT disklabels then align it to a grain with Round or RoundUp, while the
// EBR chain uses the midpoint as is.
type Geometry struct {
	start  uint64
	length uint64
}

// New returns a Geometry covering [start, start+length-1]. length must be
// at least 1.
func New(start, length uint64) (*Geometry, error) {
	if length == 0 {
		return nil, dlerrors.New(dlerrors.KindGeometryLength, "geometry length must be >= 1")
	}

	return &Geometry{start: start, length: length}, nil
}

// Start returns the first sector of the range.
func (g *Geometry) Start() uint64 {
	return g.start
}

// Length returns the number of sectors in the range.
func (g *Geometry) Length() uint64 {
	return g.length
}

// End returns the last (inclusive) sector of the range.
func (g *Geometry) End() uint64 {
	return g.start + g.length - 1
}

// Midpoint returns the midpoint sector of the range, rounding down.
func (g *Geometry) Midpoint() uint64 {
	return g.start + (g.length-1)/2
}

// Contains reports whether v lies within [start, end].
func (g *Geometry) Contains(v uint64) bool {
	return v >= g.start && v <= g.End()
}

// Duplicate returns a deep copy.
func (g *Geometry) Duplicate() *Geometry {
	return &Geometry{start: g.start, length: g.length}
}
