// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ebr

import (
	"github.com/gpartitions/disklabel/dlcore"
	"github.com/gpartitions/disklabel/dlerrors"
	"github.com/gpartitions/disklabel/geometry"
	"github.com/gpartitions/disklabel/objtree"
)

// Kind discriminates the two entry classifications an EBR link's first
// entry may carry (§4.6).
type Kind int

// Partition kinds.
const (
	KindLogical Kind = iota
	KindExtended
)

func (k Kind) String() string {
	if k == KindExtended {
		return "EXTENDED"
	}

	return "LOGICAL"
}

func (k Kind) typeByte() byte {
	if k == KindExtended {
		return typeNested
	}

	return typeLogical
}

// Partition is one EBR chain link's child entry: a Logical partition, or a
// nested Extended owning a further EBR chain (only permitted in lba_mode,
// per the data model).
type Partition struct {
	*objtree.Base

	label *Label
	kind  Kind
	slot  int

	first, last uint64

	nested *Label
}

// Start implements objtree.Node.
func (p *Partition) Start() uint64 { return p.first }

// End implements objtree.Node.
func (p *Partition) End() uint64 { return p.last }

// Type implements dlcore.Partition.
func (p *Partition) Type() string { return p.kind.String() }

// Number implements dlcore.Partition.
func (p *Partition) Number() int { return p.slot + 1 }

// HaveDisklabel implements dlcore.Partition.
func (p *Partition) HaveDisklabel() bool { return p.nested != nil }

// Disklabel implements dlcore.Partition.
func (p *Partition) Disklabel() dlcore.Disklabel {
	if p.nested == nil {
		return nil
	}

	return p.nested
}

// Length returns the partition length in sectors.
func (p *Partition) Length() uint64 { return p.last - p.first + 1 }

// Move implements dlcore.Partition (§9 open question 5).
func (p *Partition) Move(*geometry.Geometry) error {
	return dlerrors.New(dlerrors.KindNotSupported, "ebr: move is not supported")
}

// Resize implements dlcore.Partition (§9 open question 5).
func (p *Partition) Resize(*geometry.Geometry) error {
	return dlerrors.New(dlerrors.KindNotSupported, "ebr: resize is not supported")
}

// Commit implements dlcore.Partition: recursively commits the nested EBR
// chain, if any.
func (p *Partition) Commit() error {
	if p.nested == nil {
		return nil
	}

	return p.nested.Commit()
}

// Read reads from the partition's backing device, bounds-checked against
// [start, end].
func (p *Partition) Read(sector uint64, buf []byte) error {
	dev := p.label.dev

	sectorsNeeded := (uint64(len(buf)) + uint64(dev.SectorSize()) - 1) / uint64(dev.SectorSize())
	if p.first+sector+sectorsNeeded-1 > p.last {
		return dlerrors.New(dlerrors.KindIO, "ebr: read past partition end")
	}

	data, err := dev.ReadAt(p.first+sector, 0, len(buf))
	if err != nil {
		return err
	}

	copy(buf, data)

	return nil
}

// Write writes to the partition's backing device, bounds-checked against
// [start, end].
func (p *Partition) Write(sector uint64, buf []byte) error {
	dev := p.label.dev

	sectorsNeeded := (uint64(len(buf)) + uint64(dev.SectorSize()) - 1) / uint64(dev.SectorSize())
	if p.first+sector+sectorsNeeded-1 > p.last {
		return dlerrors.New(dlerrors.KindIO, "ebr: write past partition end")
	}

	return dev.WriteAt(p.first+sector, 0, buf)
}
