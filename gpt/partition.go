// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"

	"github.com/gpartitions/disklabel/dlcore"
	"github.com/gpartitions/disklabel/dlerrors"
	"github.com/gpartitions/disklabel/geometry"
	"github.com/gpartitions/disklabel/objtree"
)

// Flag bits of interest (§3).
const (
	FlagSystem      uint64 = 0x1
	FlagBootable    uint64 = 0x4
	FlagReadOnly    uint64 = 0x1000000000000000
	FlagHidden      uint64 = 0x4000000000000000
	FlagNoAutoMount uint64 = 0x8000000000000000
)

var utf16 = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Partition is a single GPT entry.
type Partition struct {
	*objtree.Base

	label *Label

	TypeGUID uuid.UUID
	UniqueID uuid.UUID
	Flags    uint64
	Name     string

	first, last uint64
	slot        int
}

// Start implements objtree.Node.
func (p *Partition) Start() uint64 { return p.first }

// End implements objtree.Node.
func (p *Partition) End() uint64 { return p.last }

// Type implements dlcore.Partition; GPT only ever creates "PRIMARY" entries
// (GPT partition-type enumeration beyond Basic Data is an explicit
// non-goal).
func (p *Partition) Type() string { return "PRIMARY" }

// Number implements dlcore.Partition: the entry's 1-based slot index.
func (p *Partition) Number() int { return p.slot + 1 }

// HaveDisklabel implements dlcore.Partition: GPT entries never own a nested
// disklabel.
func (p *Partition) HaveDisklabel() bool { return false }

// Disklabel implements dlcore.Partition.
func (p *Partition) Disklabel() dlcore.Disklabel { return nil }

// Commit implements dlcore.Partition: a no-op, since a GPT entry carries no
// nested structure.
func (p *Partition) Commit() error { return nil }

// Move implements dlcore.Partition (§9 open question 5).
func (p *Partition) Move(*geometry.Geometry) error {
	return dlerrors.New(dlerrors.KindNotSupported, "gpt: move is not supported")
}

// Resize implements dlcore.Partition (§9 open question 5).
func (p *Partition) Resize(*geometry.Geometry) error {
	return dlerrors.New(dlerrors.KindNotSupported, "gpt: resize is not supported")
}

// Length returns the partition length in sectors; the last LBA is inclusive.
func (p *Partition) Length() uint64 {
	return p.last - p.first + 1
}

// Read reads from the partition's backing device, bounds-checked against
// [start, end].
func (p *Partition) Read(sector uint64, buf []byte) error {
	dev := p.label.dev

	sectorsNeeded := (uint64(len(buf)) + uint64(dev.SectorSize()) - 1) / uint64(dev.SectorSize())
	if p.first+sector+sectorsNeeded-1 > p.last {
		return dlerrors.New(dlerrors.KindIO, "gpt: read past partition end")
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
		return dlerrors.New(dlerrors.KindIO, "gpt: write past partition end")
	}

	return dev.WriteAt(p.first+sector, 0, buf)
}

func deserializeEntry(b []byte) (*Partition, error) {
	typeGUID, err := uuid.FromBytes(fromMiddleEndian(b[0:16]))
	if err != nil {
		return nil, dlerrors.Newf(dlerrors.KindInternal, "gpt: invalid type GUID: %v", err).Wrap(err)
	}

	uniqueGUID, err := uuid.FromBytes(fromMiddleEndian(b[16:32]))
	if err != nil {
		return nil, dlerrors.Newf(dlerrors.KindInternal, "gpt: invalid partition GUID: %v", err).Wrap(err)
	}

	decoded, err := utf16.NewDecoder().Bytes(b[56:128])
	if err != nil {
		return nil, dlerrors.Newf(dlerrors.KindInternal, "gpt: invalid partition name: %v", err).Wrap(err)
	}

	return &Partition{
		TypeGUID: typeGUID,
		UniqueID: uniqueGUID,
		first:    binary.LittleEndian.Uint64(b[32:40]),
		last:     binary.LittleEndian.Uint64(b[40:48]),
		Flags:    binary.LittleEndian.Uint64(b[48:56]),
		Name:     string(bytes.Trim(decoded, "\x00")),
	}, nil
}

func (p *Partition) serialize(b []byte) error {
	typeBytes, err := p.TypeGUID.MarshalBinary()
	if err != nil {
		return err
	}

	copy(b[0:16], toMiddleEndian(typeBytes))

	idBytes, err := p.UniqueID.MarshalBinary()
	if err != nil {
		return err
	}

	copy(b[16:32], toMiddleEndian(idBytes))

	binary.LittleEndian.PutUint64(b[32:40], p.first)
	binary.LittleEndian.PutUint64(b[40:48], p.last)
	binary.LittleEndian.PutUint64(b[48:56], p.Flags)

	name, err := utf16.NewEncoder().Bytes([]byte(p.Name))
	if err != nil {
		return err
	}

	if len(name) > 72 {
		return dlerrors.Newf(dlerrors.KindPartitionType, "gpt: partition name %q too long", p.Name).WithField("name")
	}

	copy(b[56:128], name)

	return nil
}

func isEntryEmpty(b []byte) bool {
	for _, v := range b[0:16] {
		if v != 0 {
			return false
		}
	}

	return true
}
