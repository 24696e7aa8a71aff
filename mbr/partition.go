// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package mbr

import (
	"github.com/gpartitions/disklabel/dlcore"
	"github.com/gpartitions/disklabel/dlerrors"
	"github.com/gpartitions/disklabel/geometry"
	"github.com/gpartitions/disklabel/objtree"
)

// Kind discriminates the four MBR entry classifications (§4.5).
type Kind int

// Partition kinds.
const (
	KindPrimary Kind = iota
	KindExtendedDOS
	KindExtendedLBA
	KindGUIDProtective
)

func (k Kind) String() string {
	switch k {
	case KindPrimary:
		return "PRIMARY"
	case KindExtendedDOS:
		return "EXTENDED"
	case KindExtendedLBA:
		return "EXTENDED LBA"
	case KindGUIDProtective:
		return "GUID"
	default:
		return "UNKNOWN"
	}
}

func (k Kind) typeByte() byte {
	switch k {
	case KindPrimary:
		return typePrimary
	case KindExtendedDOS:
		return typeDOSExt
	case KindExtendedLBA:
		return typeLBAExt
	case KindGUIDProtective:
		return typeGUIDProt
	default:
		return typeEmpty
	}
}

// Partition is one of the four classified MBR entry variants. Extended and
// GUIDProtective entries own a nested Disklabel (the EBR chain or the GPT,
// respectively); Primary entries are a raw read/write window.
type Partition struct {
	*objtree.Base

	label *Label
	kind  Kind
	slot  int

	bootable    bool
	first, last uint64

	nested dlcore.Disklabel
}

// Start implements objtree.Node.
func (p *Partition) Start() uint64 { return p.first }

// End implements objtree.Node.
func (p *Partition) End() uint64 { return p.last }

// Type implements dlcore.Partition.
func (p *Partition) Type() string { return p.kind.String() }

// Number implements dlcore.Partition: the entry's 1-based slot index.
func (p *Partition) Number() int { return p.slot + 1 }

// HaveDisklabel implements dlcore.Partition.
func (p *Partition) HaveDisklabel() bool { return p.nested != nil }

// Disklabel implements dlcore.Partition.
func (p *Partition) Disklabel() dlcore.Disklabel { return p.nested }

// Length returns the partition length in sectors.
func (p *Partition) Length() uint64 { return p.last - p.first + 1 }

// Move implements dlcore.Partition (§9 open question 5).
func (p *Partition) Move(*geometry.Geometry) error {
	return dlerrors.New(dlerrors.KindNotSupported, "mbr: move is not supported")
}

// Resize implements dlcore.Partition (§9 open question 5).
func (p *Partition) Resize(*geometry.Geometry) error {
	return dlerrors.New(dlerrors.KindNotSupported, "mbr: resize is not supported")
}

// Commit implements dlcore.Partition: recursively commits the nested
// disklabel, if any (§4.5's "recursively commit each child partition").
func (p *Partition) Commit() error {
	if p.nested == nil {
		return nil
	}

	return p.nested.Commit()
}

// Read reads from the partition's backing device, bounds-checked against
// [start, end] (§4.9).
func (p *Partition) Read(sector uint64, buf []byte) error {
	dev := p.label.dev

	sectorsNeeded := (uint64(len(buf)) + uint64(dev.SectorSize()) - 1) / uint64(dev.SectorSize())
	if p.first+sector+sectorsNeeded-1 > p.last {
		return dlerrors.New(dlerrors.KindIO, "mbr: read past partition end")
	}

	data, err := dev.ReadAt(p.first+sector, 0, len(buf))
	if err != nil {
		return err
	}

	copy(buf, data)

	return nil
}

// Write writes to the partition's backing device, bounds-checked against
// [start, end] (§4.9).
func (p *Partition) Write(sector uint64, buf []byte) error {
	dev := p.label.dev

	sectorsNeeded := (uint64(len(buf)) + uint64(dev.SectorSize()) - 1) / uint64(dev.SectorSize())
	if p.first+sector+sectorsNeeded-1 > p.last {
		return dlerrors.New(dlerrors.KindIO, "mbr: write past partition end")
	}

	return dev.WriteAt(p.first+sector, 0, buf)
}

func (p *Partition) release() {
	if p.nested != nil {
		p.nested.Unref()
		p.nested = nil
	}
}
