// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package ebr implements the Extended Boot Record chain disklabel (C8): a
// singly linked list of 512-byte sectors, each describing one logical
// partition and optionally chaining to the next sector.
package ebr

import (
	"encoding/binary"

	"github.com/siderolabs/gen/xslices"

	"github.com/gpartitions/disklabel/blockio"
	"github.com/gpartitions/disklabel/chs"
	"github.com/gpartitions/disklabel/dlcore"
	"github.com/gpartitions/disklabel/dlerrors"
	"github.com/gpartitions/disklabel/geometry"
	"github.com/gpartitions/disklabel/objtree"
)

// SectorSize is the fixed EBR sector size, identical to MBR's.
const SectorSize = 512

const (
	entryOffset = 0x1BE
	entrySize   = 16
	magicOffset = 0x1FE

	typeEmpty   = 0x00
	typeLogical = 0x83
	typeNested  = 0x85
)

// link is one node of the chain: the absolute LBA the sector lives at,
// plus its (at most one) child partition.
type link struct {
	base uint64
	part *Partition
}

// Label is the EBR chain disklabel (C8).
type Label struct {
	*objtree.Base

	dev     blockio.BlockDevice
	extBase uint64 // absolute LBA of the enclosing Extended partition's start
	extEnd  uint64
	lbaMode bool

	links []*link
}

// System implements dlcore.Disklabel.
func (l *Label) System() string { return "EBR" }

// Start implements objtree.Node.
func (l *Label) Start() uint64 { return l.extBase }

// End implements objtree.Node.
func (l *Label) End() uint64 { return l.extEnd }

func (l *Label) release() {
	for _, lk := range l.links {
		if lk.part != nil {
			lk.part.Unref()
		}
	}
}

// Probe reads the EBR chain starting at extBase (§4.6). A missing magic on
// the first sector is not an error: it means the extended partition has no
// logical partitions yet.
func Probe(dev blockio.BlockDevice, parent objtree.Node, extBase, extEnd uint64, lbaMode bool) (*Label, error) {
	l := &Label{dev: dev, extBase: extBase, extEnd: extEnd, lbaMode: lbaMode}
	l.Base = objtree.NewBase(objtree.KindDisklabel, parent, l.release)

	cur := extBase

	g := chs.Geometry{}
	if h, err := dev.Heads(); err == nil {
		g.Heads = h
	}

	if s, err := dev.SectorsPerTrack(); err == nil {
		g.SectorsPerTrack = s
	}

	for {
		sector, err := dev.ReadAt(cur, 0, int(dev.SectorSize()))
		if err != nil {
			return nil, err
		}

		if sector[magicOffset] != 0x55 || sector[magicOffset+1] != 0xAA {
			if cur == extBase {
				l.links = []*link{{base: extBase}}

				return l, nil
			}

			return nil, dlerrors.New(dlerrors.KindInternal, "ebr: chained sector missing magic")
		}

		e0 := decodeEntry(sector[entryOffset : entryOffset+entrySize])
		e1 := decodeEntry(sector[entryOffset+entrySize : entryOffset+2*entrySize])

		lk := &link{base: cur}

		if e0.partType != typeEmpty {
			part, err := buildPartition(l, e0, cur, len(l.links))
			if err != nil {
				return nil, err
			}

			lk.part = part
		}

		l.links = append(l.links, lk)

		if e1.partType == typeEmpty {
			break
		}

		next, err := nextLinkLBA(e1, extBase, lbaMode, g)
		if err != nil {
			return nil, err
		}

		cur = next
	}

	return l, nil
}

func buildPartition(l *Label, e rawEntry, base uint64, slot int) (*Partition, error) {
	var first, last uint64

	if l.lbaMode {
		first = base + uint64(e.firstLBA)
		last = first + uint64(e.sectors) - 1
	} else {
		g := chs.Geometry{}
		if h, err := l.dev.Heads(); err == nil {
			g.Heads = h
		}

		if s, err := l.dev.SectorsPerTrack(); err == nil {
			g.SectorsPerTrack = s
		}

		if g.Heads != 0 && g.SectorsPerTrack != 0 {
			fa, err := chs.ToLBA(chs.Decode(e.firstCHS), g)
			if err != nil {
				return nil, err
			}

			la, err := chs.ToLBA(chs.Decode(e.lastCHS), g)
			if err != nil {
				return nil, err
			}

			first, last = fa, la
		} else {
			first = base + uint64(e.firstLBA)
			last = first + uint64(e.sectors) - 1
		}
	}

	kind := KindLogical
	if e.partType == typeNested {
		kind = KindExtended
	}

	p := &Partition{label: l, kind: kind, slot: slot, first: first, last: last}
	p.Base = objtree.NewBase(objtree.KindPartition, l, func() {})

	if kind == KindExtended {
		nested, err := Probe(l.dev, p, first, last, true)
		if err != nil {
			return nil, err
		}

		p.nested = nested
	}

	return p, nil
}

func nextLinkLBA(e rawEntry, extBase uint64, lbaMode bool, g chs.Geometry) (uint64, error) {
	if lbaMode {
		return extBase + uint64(e.firstLBA), nil
	}

	addr, err := chs.ToLBA(chs.Decode(e.firstCHS), g)
	if err != nil {
		return 0, err
	}

	return addr, nil
}

// New builds a fresh EBR chain in memory for a just-created Extended
// partition, seeded with a single empty link at extBase — the first EBR
// sector always lives at the extended partition's own start (§4.6 step 1).
// Nothing is written to disk until Commit.
func New(dev blockio.BlockDevice, parent objtree.Node, extBase, extEnd uint64, lbaMode bool) *Label {
	l := &Label{dev: dev, extBase: extBase, extEnd: extEnd, lbaMode: lbaMode}
	l.Base = objtree.NewBase(objtree.KindDisklabel, parent, l.release)
	l.links = []*link{{base: extBase}}

	return l
}

// Partitions implements dlcore.Disklabel.
func (l *Label) Partitions() []dlcore.Partition {
	occupied := xslices.Filter(l.links, func(lk *link) bool { return lk.part != nil })

	return xslices.Map(occupied, func(lk *link) dlcore.Partition { return lk.part })
}

func (l *Label) overlaps(first, last uint64) bool {
	for _, lk := range l.links {
		if lk.part == nil {
			continue
		}

		if first <= lk.part.last && last >= lk.part.first {
			return true
		}
	}

	return false
}

// CreatePartition implements §4.6's create-partition algorithm: a `base`
// aligned to the sector grain from startRange's midpoint, the logical
// partition's own start at base+1 (reserving the EBR header sector), and
// end at endRange's midpoint. Nested Extended links are rejected unless the
// chain is in lba_mode. The chain is only mutated in memory; Commit is the
// sole I/O path.
func (l *Label) CreatePartition(startRange, endRange *geometry.Geometry, typeTag string) (*Partition, error) {
	kind, err := parseType(typeTag)
	if err != nil {
		return nil, err
	}

	if kind == KindExtended && !l.lbaMode {
		return nil, dlerrors.New(dlerrors.KindPartitionType, "ebr: nested extended partitions require lba_mode").WithField("type")
	}

	var tail *link
	if len(l.links) > 0 && l.links[len(l.links)-1].part == nil {
		tail = l.links[len(l.links)-1]
	}

	var base uint64
	if tail != nil {
		// The tail link's base is already fixed (either extBase, for the
		// chain's first link, or the previous link's chosen continuation
		// point); only the new partition's own range is still open.
		base = tail.base
	} else {
		base = startRange.Midpoint()
	}

	start := base + 1
	end := endRange.Midpoint()

	if base < l.extBase || end > l.extEnd || start > end {
		return nil, dlerrors.NewOutOfSpace("start", "ebr: requested range falls outside the extended partition")
	}

	if l.overlaps(start, end) {
		return nil, dlerrors.Newf(dlerrors.KindGeometry, "ebr: range [%d,%d] overlaps an existing logical partition", start, end).WithField("start")
	}

	p := &Partition{label: l, kind: kind, first: start, last: end}
	p.Base = objtree.NewBase(objtree.KindPartition, l, func() {})

	if tail != nil {
		tail.part = p
		p.slot = len(l.links) - 1
	} else {
		lk := &link{base: base, part: p}
		p.slot = len(l.links)
		l.links = append(l.links, lk)
	}

	if kind == KindExtended {
		p.nested = New(l.dev, p, start, end, true)
	}

	return p, nil
}

func parseType(tag string) (Kind, error) {
	switch tag {
	case "LOGICAL":
		return KindLogical, nil
	case "EXTENDED":
		return KindExtended, nil
	default:
		return 0, dlerrors.Newf(dlerrors.KindPartitionType, "ebr: unknown partition type %q", tag).WithField("type")
	}
}

// Commit writes each link's 512-byte sector in chain order, then commits
// each link's child partition (§4.6).
func (l *Label) Commit() error {
	for i, lk := range l.links {
		sector := make([]byte, SectorSize)

		if lk.part != nil {
			e0 := rawEntry{partType: lk.part.kind.typeByte()}

			if l.lbaMode {
				e0.firstLBA = uint32(lk.part.first - lk.base) //nolint:gosec // sector counts fit 32 bits in practice
				e0.sectors = uint32(lk.part.last - lk.part.first + 1)
			} else {
				g := chs.Geometry{}

				if h, err := l.dev.Heads(); err == nil {
					g.Heads = h
				}

				if s, err := l.dev.SectorsPerTrack(); err == nil {
					g.SectorsPerTrack = s
				}

				e0.firstCHS = chsFor(lk.part.first, g)
				e0.lastCHS = chsFor(lk.part.last, g)
				e0.firstLBA = uint32(lk.part.first - lk.base) //nolint:gosec
				e0.sectors = uint32(lk.part.last - lk.part.first + 1)
			}

			e0.encode(sector[entryOffset : entryOffset+entrySize])
		}

		if i+1 < len(l.links) {
			next := l.links[i+1]

			e1 := rawEntry{partType: typeNested}
			if l.lbaMode {
				e1.firstLBA = uint32(next.base - l.extBase) //nolint:gosec
			}

			e1.sectors = uint32(l.extEnd - next.base + 1) //nolint:gosec
			e1.encode(sector[entryOffset+entrySize : entryOffset+2*entrySize])
		}

		sector[magicOffset] = 0x55
		sector[magicOffset+1] = 0xAA

		if err := l.dev.WriteAt(lk.base, 0, sector); err != nil {
			return err
		}

		if lk.part != nil && lk.part.nested != nil {
			if err := lk.part.nested.Commit(); err != nil {
				return err
			}
		}
	}

	return l.dev.Sync()
}

// Raw implements dlcore.Disklabel: N links × 512 bytes, no I/O.
func (l *Label) Raw() ([]byte, error) {
	out := make([]byte, 0, len(l.links)*SectorSize)

	for range l.links {
		out = append(out, make([]byte, SectorSize)...)
	}

	return out, nil
}

type rawEntry struct {
	partType byte
	firstCHS [3]byte
	lastCHS  [3]byte
	firstLBA uint32
	sectors  uint32
}

func decodeEntry(b []byte) rawEntry {
	return rawEntry{
		firstCHS: [3]byte{b[1], b[2], b[3]},
		partType: b[4],
		lastCHS:  [3]byte{b[5], b[6], b[7]},
		firstLBA: binary.LittleEndian.Uint32(b[8:12]),
		sectors:  binary.LittleEndian.Uint32(b[12:16]),
	}
}

func (e rawEntry) encode(b []byte) {
	b[1], b[2], b[3] = e.firstCHS[0], e.firstCHS[1], e.firstCHS[2]
	b[4] = e.partType
	b[5], b[6], b[7] = e.lastCHS[0], e.lastCHS[1], e.lastCHS[2]
	binary.LittleEndian.PutUint32(b[8:12], e.firstLBA)
	binary.LittleEndian.PutUint32(b[12:16], e.sectors)
}

var maxCHS = chs.Addr{Cylinder: 1023, Head: 254, Sector: 63}

func chsFor(lba uint64, g chs.Geometry) [3]byte {
	if g.Heads == 0 || g.SectorsPerTrack == 0 {
		return chs.Encode(maxCHS)
	}

	addr, err := chs.FromLBA(lba, g)
	if err != nil {
		return chs.Encode(maxCHS)
	}

	return chs.Encode(addr)
}
