// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package mbr

import (
	"github.com/siderolabs/gen/xslices"

	"github.com/gpartitions/disklabel/blockio"
	"github.com/gpartitions/disklabel/chs"
	"github.com/gpartitions/disklabel/dlcore"
	"github.com/gpartitions/disklabel/dlerrors"
	"github.com/gpartitions/disklabel/ebr"
	"github.com/gpartitions/disklabel/geometry"
	"github.com/gpartitions/disklabel/gpt"
	"github.com/gpartitions/disklabel/objtree"
)

// Label is the MBR disklabel (C7): a 512-byte sector holding at most four
// partition entries, classified by type byte into Primary, Extended (DOS
// or LBA-mode) or GuidProtective.
type Label struct {
	*objtree.Base

	dev   blockio.BlockDevice
	start uint64

	entries [numEntries]*Partition
}

// System implements dlcore.Disklabel.
func (l *Label) System() string { return "MBR" }

// Start implements objtree.Node.
func (l *Label) Start() uint64 { return l.start }

// End implements objtree.Node.
func (l *Label) End() uint64 { return l.dev.TotalSectors() - 1 }

func (l *Label) release() {
	for _, p := range l.entries {
		if p != nil {
			p.Unref()
		}
	}
}

func geometryOf(dev blockio.BlockDevice) chs.Geometry {
	g := chs.Geometry{}

	if h, err := dev.Heads(); err == nil {
		g.Heads = h
	}

	if s, err := dev.SectorsPerTrack(); err == nil {
		g.SectorsPerTrack = s
	}

	return g
}

// Probe reads sector 0 (relative to parent.start) and, if it carries the
// 0x55AA magic, classifies each non-empty entry (§4.5).
func Probe(dev blockio.BlockDevice, parent objtree.Node, start uint64) (*Label, error) {
	sector, err := dev.ReadAt(start, 0, SectorSize)
	if err != nil {
		return nil, err
	}

	if sector[magicOffset] != 0x55 || sector[magicOffset+1] != 0xAA {
		return nil, dlerrors.New(dlerrors.KindInternal, "mbr: missing 0x55AA signature")
	}

	l := &Label{dev: dev, start: start}
	l.Base = objtree.NewBase(objtree.KindDisklabel, parent, l.release)

	g := geometryOf(dev)

	for i := 0; i < numEntries; i++ {
		b := sector[entryOffset+i*entrySize : entryOffset+(i+1)*entrySize]
		e := decodeEntry(b)

		if e.partType == typeEmpty {
			continue
		}

		p, err := l.classify(e, i, g)
		if err != nil {
			return nil, err
		}

		l.entries[i] = p
	}

	return l, nil
}

func (l *Label) classify(e rawEntry, slot int, g chs.Geometry) (*Partition, error) {
	p := &Partition{label: l, slot: slot, bootable: e.status == statusBoot}
	p.Base = objtree.NewBase(objtree.KindPartition, l, p.release)

	switch e.partType {
	case typeDOSExt:
		p.kind = KindExtendedDOS

		first, err := chs.ToLBA(chs.Decode(e.firstCHS), g)
		if err != nil {
			return nil, err
		}

		last, err := chs.ToLBA(chs.Decode(e.lastCHS), g)
		if err != nil {
			return nil, err
		}

		p.first, p.last = first, last

		nested, err := ebr.Probe(l.dev, p, p.first, p.last, false)
		if err != nil {
			return nil, err
		}

		p.nested = nested

	case typeLBAExt, typeLBAExt2:
		p.kind = KindExtendedLBA
		p.first = l.start + uint64(e.firstLBA)
		p.last = p.first + uint64(e.sectors) - 1

		nested, err := ebr.Probe(l.dev, p, p.first, p.last, true)
		if err != nil {
			return nil, err
		}

		p.nested = nested

	case typeGUIDProt:
		p.kind = KindGUIDProtective
		p.first = l.start + uint64(e.firstLBA)
		p.last = p.first + uint64(e.sectors) - 1

		nested, err := gpt.Probe(l.dev, p)
		if err != nil {
			return nil, err
		}

		p.nested = nested

	default:
		p.kind = KindPrimary

		if g.Heads == 0 || g.SectorsPerTrack == 0 {
			p.first = l.start + uint64(e.firstLBA)
			p.last = p.first + uint64(e.sectors) - 1

			break
		}

		first, err := chs.ToLBA(chs.Decode(e.firstCHS), g)
		if err != nil {
			return nil, err
		}

		last, err := chs.ToLBA(chs.Decode(e.lastCHS), g)
		if err != nil {
			return nil, err
		}

		p.first, p.last = first, last
	}

	return p, nil
}

// New formats an empty MBR label in memory over dev; nothing is written
// until Commit.
func New(dev blockio.BlockDevice, parent objtree.Node, start uint64) *Label {
	l := &Label{dev: dev, start: start}
	l.Base = objtree.NewBase(objtree.KindDisklabel, parent, l.release)

	return l
}

// Partitions implements dlcore.Disklabel.
func (l *Label) Partitions() []dlcore.Partition {
	occupied := xslices.Filter(l.entries[:], func(p *Partition) bool { return p != nil })

	return xslices.Map(occupied, func(p *Partition) dlcore.Partition { return p })
}

func (l *Label) overlaps(first, last uint64) bool {
	for _, p := range l.entries {
		if p == nil {
			continue
		}

		if first <= p.last && last >= p.first {
			return true
		}
	}

	return false
}

func (l *Label) freeSlot() (int, error) {
	for i, p := range l.entries {
		if p == nil {
			return i, nil
		}
	}

	return 0, dlerrors.New(dlerrors.KindDisklabelFull, "mbr: no free partition table entries")
}

func parseKind(tag string) (Kind, error) {
	switch tag {
	case "PRIMARY":
		return KindPrimary, nil
	case "EXTENDED":
		return KindExtendedDOS, nil
	case "EXTENDED-LBA":
		return KindExtendedLBA, nil
	default:
		return 0, dlerrors.Newf(dlerrors.KindPartitionType, "mbr: unknown partition type %q", tag).WithField("type")
	}
}

// CreatePartition implements §4.5's create-partition algorithm: round the
// midpoint of each range to the device's sectors-per-track grain, validate
// containment and overlap, then install the classified entry in the first
// free slot. The entry is only installed in memory; Commit is the sole I/O
// path.
func (l *Label) CreatePartition(startRange, endRange *geometry.Geometry, typeTag string) (*Partition, error) {
	kind, err := parseKind(typeTag)
	if err != nil {
		return nil, err
	}

	grain := uint64(1)
	if spt, err := l.dev.SectorsPerTrack(); err == nil && spt > 0 {
		grain = uint64(spt)
	}

	first, err := geometry.Round(startRange.Midpoint(), grain)
	if err != nil {
		return nil, err
	}

	last, err := geometry.Round(endRange.Midpoint(), grain)
	if err != nil {
		return nil, err
	}

	if !startRange.Contains(first) || !endRange.Contains(last) || first < l.start || last > l.End() || first > last {
		return nil, dlerrors.NewOutOfSpace("start", "mbr: requested range falls outside the device or its supplied ranges")
	}

	if l.overlaps(first, last) {
		return nil, dlerrors.Newf(dlerrors.KindGeometry, "mbr: range [%d,%d] overlaps an existing partition", first, last).WithField("start")
	}

	slot, err := l.freeSlot()
	if err != nil {
		return nil, err
	}

	p := &Partition{label: l, kind: kind, slot: slot, first: first, last: last}
	p.Base = objtree.NewBase(objtree.KindPartition, l, p.release)

	switch kind {
	case KindExtendedDOS:
		p.nested = ebr.New(l.dev, p, first, last, false)
	case KindExtendedLBA:
		p.nested = ebr.New(l.dev, p, first, last, true)
	}

	l.entries[slot] = p

	return p, nil
}

// RemovePartition zeroes the entry and drops the child slot (§4.5). Nothing
// is written to disk until Commit.
func (l *Label) RemovePartition(number int) error {
	idx := number - 1
	if idx < 0 || idx >= numEntries || l.entries[idx] == nil {
		return dlerrors.Newf(dlerrors.KindPartitionNumber, "mbr: no partition numbered %d", number).WithField("number")
	}

	p := l.entries[idx]
	l.entries[idx] = nil
	p.Unref()

	return nil
}

// Commit writes the 512-byte MBR sector, then recursively commits each
// child partition (§4.5).
func (l *Label) Commit() error {
	sector := make([]byte, SectorSize)

	g := geometryOf(l.dev)

	for i, p := range l.entries {
		b := sector[entryOffset+i*entrySize : entryOffset+(i+1)*entrySize]

		if p == nil {
			continue
		}

		e := rawEntry{partType: p.kind.typeByte()}
		if p.bootable {
			e.status = statusBoot
		}

		switch p.kind {
		case KindExtendedLBA, KindGUIDProtective:
			e.firstLBA = uint32(p.first - l.start) //nolint:gosec
			e.sectors = uint32(p.last - p.first + 1) //nolint:gosec
			e.firstCHS = chsFor(p.first, g)
			e.lastCHS = chsFor(p.last, g)
		default:
			e.firstCHS = chsFor(p.first, g)
			e.lastCHS = chsFor(p.last, g)
			e.firstLBA = uint32(p.first - l.start) //nolint:gosec
			e.sectors = uint32(p.last - p.first + 1) //nolint:gosec
		}

		e.encode(b)
	}

	sector[magicOffset] = 0x55
	sector[magicOffset+1] = 0xAA

	if err := l.dev.WriteAt(l.start, 0, sector); err != nil {
		return err
	}

	for _, p := range l.entries {
		if p == nil {
			continue
		}

		if err := p.Commit(); err != nil {
			return err
		}
	}

	return l.dev.Sync()
}

// Raw implements dlcore.Disklabel: the 512-byte MBR sector, no I/O.
func (l *Label) Raw() ([]byte, error) {
	sector := make([]byte, SectorSize)

	g := geometryOf(l.dev)

	for i, p := range l.entries {
		if p == nil {
			continue
		}

		b := sector[entryOffset+i*entrySize : entryOffset+(i+1)*entrySize]

		e := rawEntry{partType: p.kind.typeByte()}
		if p.bootable {
			e.status = statusBoot
		}

		e.firstCHS = chsFor(p.first, g)
		e.lastCHS = chsFor(p.last, g)
		e.firstLBA = uint32(p.first - l.start) //nolint:gosec
		e.sectors = uint32(p.last - p.first + 1) //nolint:gosec

		e.encode(b)
	}

	sector[magicOffset] = 0x55
	sector[magicOffset+1] = 0xAA

	return sector, nil
}
