// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import (
	"errors"

	"github.com/google/uuid"
	"github.com/siderolabs/gen/xslices"

	"github.com/gpartitions/disklabel/blockio"
	"github.com/gpartitions/disklabel/dlcore"
	"github.com/gpartitions/disklabel/dlerrors"
	"github.com/gpartitions/disklabel/geometry"
	"github.com/gpartitions/disklabel/objtree"
)

// Sentinel causes wrapped by the EInternal errors deserializeHeader and
// Probe return, so callers can distinguish "not GPT at all" from
// "corrupted GPT" with errors.Is.
var (
	ErrPartitionTableDoesNotExist = errors.New("gpt: no GPT signature present")
	ErrHeaderCRCMismatch          = errors.New("gpt: header CRC mismatch")
	ErrEntriesCRCMismatch         = errors.New("gpt: entries array CRC mismatch")
)

const (
	primaryHeaderLBA = 1
	pmbrLBA          = 0
)

// Label is the GPT disklabel (C9): a primary header, its backup, and an
// entry array of Partitions.
type Label struct {
	*objtree.Base

	dev    blockio.BlockDevice
	header *Header

	entries []*Partition

	mbrBootable bool
}

// System implements dlcore.Disklabel.
func (l *Label) System() string { return "GPT" }

// Start implements objtree.Node: GPT always spans the whole device.
func (l *Label) Start() uint64 { return 0 }

// End implements objtree.Node.
func (l *Label) End() uint64 { return l.dev.TotalSectors() - 1 }

func (l *Label) release() {
	for _, p := range l.entries {
		if p != nil {
			p.Unref()
		}
	}
}

// Probe reads an existing GPT from dev, validating the primary header's CRC
// and the primary entries array's CRC (invariant 4). The backup header and
// backup entries array are not read. It fails with
// ErrPartitionTableDoesNotExist wrapped if no EFI PART signature is present
// at LBA 1.
func Probe(dev blockio.BlockDevice, parent objtree.Node) (*Label, error) {
	primary, err := readSector(dev, primaryHeaderLBA)
	if err != nil {
		return nil, err
	}

	header, err := deserializeHeader(primary)
	if err != nil {
		if string(primary[0:8]) != MagicEFIPart {
			return nil, dlerrors.New(dlerrors.KindInternal, "gpt: no signature at LBA 1").Wrap(ErrPartitionTableDoesNotExist)
		}

		return nil, err
	}

	entryBytes := int(header.NumEntries) * int(header.EntrySize)

	raw, err := dev.ReadAt(header.EntriesLBA, 0, entryBytes)
	if err != nil {
		return nil, err
	}

	crc := crc32OfEntries(raw)
	if crc != header.EntriesCRC32 {
		return nil, dlerrors.New(dlerrors.KindInternal, "gpt: entries CRC mismatch").Wrap(ErrEntriesCRCMismatch)
	}

	l := &Label{dev: dev, header: header}
	l.Base = objtree.NewBase(objtree.KindDisklabel, parent, l.release)

	for i := 0; i < int(header.NumEntries); i++ {
		b := raw[i*int(header.EntrySize) : (i+1)*int(header.EntrySize)]
		if isEntryEmpty(b) {
			l.entries = append(l.entries, nil)

			continue
		}

		p, err := deserializeEntry(b)
		if err != nil {
			return nil, err
		}

		p.label = l
		p.slot = i
		p.Base = objtree.NewBase(objtree.KindPartition, l, func() {})

		l.entries = append(l.entries, p)
	}

	return l, nil
}

// New builds a fresh GPT disklabel in memory: an empty primary and backup
// header pair and an empty entry array (§4.7 step 1-3). Nothing is written
// to disk until Commit, which also lays down the protective MBR.
func New(dev blockio.BlockDevice, parent objtree.Node, setters ...Option) (*Label, error) {
	opts := defaultOptions(setters...)

	total := dev.TotalSectors()
	entryBytes := opts.NumEntries * uint32(entrySize)
	entrySectors := (uint64(entryBytes) + uint64(dev.SectorSize()) - 1) / uint64(dev.SectorSize())

	firstUsable := opts.EntriesLBA + entrySectors
	if total < firstUsable+entrySectors+2 {
		return nil, dlerrors.NewOutOfSpace("length", "gpt: device too small for %d entries", opts.NumEntries)
	}

	lastUsable := total - entrySectors - 2

	header := &Header{
		Revision:    0x00010000,
		Size:        HeaderSize,
		CurrentLBA:  primaryHeaderLBA,
		BackupLBA:   total - 1,
		FirstUsable: firstUsable,
		LastUsable:  lastUsable,
		DiskGUID:    uuid.New(),
		EntriesLBA:  opts.EntriesLBA,
		NumEntries:  opts.NumEntries,
		EntrySize:   uint32(entrySize),
	}

	l := &Label{dev: dev, header: header, entries: make([]*Partition, opts.NumEntries), mbrBootable: opts.MarkMBRBootable}
	l.Base = objtree.NewBase(objtree.KindDisklabel, parent, l.release)

	return l, nil
}

const entrySize = 128

// Partitions implements dlcore.Disklabel.
func (l *Label) Partitions() []dlcore.Partition {
	occupied := xslices.Filter(l.entries, func(p *Partition) bool { return p != nil })

	return xslices.Map(occupied, func(p *Partition) dlcore.Partition { return p })
}

// FindByName returns the first occupied entry whose Name matches name, or
// nil if none does. Only GPT entries carry a name on disk; MBR and EBR
// partitions have no equivalent field.
func (l *Label) FindByName(name string) *Partition {
	for _, p := range l.entries {
		if p != nil && p.Name == name {
			return p
		}
	}

	return nil
}

// overlaps reports whether [first, last] intersects any occupied entry.
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

	return 0, dlerrors.New(dlerrors.KindDisklabelFull, "gpt: no free entry slots")
}

// CreatePartition allocates a new entry spanning the aligned midpoints of
// startRange and endRange (§4.7 steps 4-7): it rejects overlap with any
// occupied entry, picks the first free slot, and assigns a fresh unique GUID
// and the requested type. The CRCs are not recomputed here; Commit and Raw
// compute them from the current entries when serializing.
func (l *Label) CreatePartition(startRange, endRange *geometry.Geometry, typeTag string, setters ...PartitionOption) (*Partition, error) {
	if err := ParseType(typeTag); err != nil {
		return nil, err
	}

	grain := uint64(l.dev.OptimalAlignment())
	if grain == 0 {
		grain = uint64(l.dev.SectorSize())
	}

	grain /= uint64(l.dev.SectorSize())
	if grain == 0 {
		grain = 1
	}

	first, err := geometry.RoundUp(startRange.Midpoint(), grain)
	if err != nil {
		return nil, err
	}

	last, err := geometry.Round(endRange.Midpoint(), grain)
	if err != nil {
		return nil, err
	}

	if first < l.header.FirstUsable || last > l.header.LastUsable || first > last {
		return nil, dlerrors.NewOutOfSpace("start", "gpt: requested range falls outside usable area")
	}

	if l.overlaps(first, last) {
		return nil, dlerrors.Newf(dlerrors.KindGeometry, "gpt: range [%d,%d] overlaps an existing partition", first, last).WithField("start")
	}

	slot, err := l.freeSlot()
	if err != nil {
		return nil, err
	}

	opts := defaultPartitionOptions(setters...)

	p := &Partition{
		label:    l,
		TypeGUID: opts.Type,
		UniqueID: uuid.New(),
		Flags:    opts.Flags,
		Name:     opts.Name,
		first:    first,
		last:     last,
		slot:     slot,
	}
	p.Base = objtree.NewBase(objtree.KindPartition, l, func() {})

	l.entries[slot] = p

	return p, nil
}

// RemovePartition implements §4.7's deletion half: it rejects a system
// (FlagSystem) entry with EPartition and zeroes the slot. Nothing is
// written to disk until Commit.
func (l *Label) RemovePartition(number int) error {
	idx := number - 1
	if idx < 0 || idx >= len(l.entries) || l.entries[idx] == nil {
		return dlerrors.Newf(dlerrors.KindPartitionNumber, "gpt: no partition numbered %d", number).WithField("number")
	}

	p := l.entries[idx]
	if p.Flags&FlagSystem != 0 {
		return dlerrors.New(dlerrors.KindPartition, "gpt: refusing to remove a system partition").WithField("number")
	}

	l.entries[idx] = nil
	p.Unref()

	return nil
}

// Commit writes the protective MBR, the primary header, the primary
// entries, the backup entries and finally the backup header, in that order
// (§4.7): the backup header is only made consistent once everything it
// might reference has already landed on disk. This is the sole point at
// which a GPT label touches dev.
func (l *Label) Commit() error {
	if err := l.writePMBR(l.mbrBootable); err != nil {
		return err
	}

	raw := make([]byte, int(l.header.NumEntries)*entrySize)

	for i, p := range l.entries {
		if p == nil {
			continue
		}

		if err := p.serialize(raw[i*entrySize : (i+1)*entrySize]); err != nil {
			return err
		}
	}

	l.header.EntriesCRC32 = crc32OfEntries(raw)

	backupEntriesLBA := l.header.LastUsable + 1

	if err := writeSector(l.dev, l.header.CurrentLBA, l.header.serialize(l.dev.SectorSize())); err != nil {
		return err
	}

	if err := l.dev.WriteAt(l.header.EntriesLBA, 0, raw); err != nil {
		return err
	}

	if err := l.dev.WriteAt(backupEntriesLBA, 0, raw); err != nil {
		return err
	}

	backup := l.header.backupOf(backupEntriesLBA)
	if err := writeSector(l.dev, backup.CurrentLBA, backup.serialize(l.dev.SectorSize())); err != nil {
		return err
	}

	return l.dev.Sync()
}

// Raw returns the primary header sector followed by the primary entries
// array, performing no I/O (the composition observers use to inspect a
// label without going through the device).
func (l *Label) Raw() ([]byte, error) {
	raw := make([]byte, int(l.header.NumEntries)*entrySize)

	for i, p := range l.entries {
		if p == nil {
			continue
		}

		if err := p.serialize(raw[i*entrySize : (i+1)*entrySize]); err != nil {
			return nil, err
		}
	}

	h := *l.header
	h.EntriesCRC32 = crc32OfEntries(raw)

	header := h.serialize(l.dev.SectorSize())

	return append(header, raw...), nil
}

// writePMBR writes the single protective-MBR sector (§4.7 step 1): one
// 0xEE entry spanning the device (capped at the 32-bit CHS/LBA field
// range), signature 0x55AA, and otherwise zero.
func (l *Label) writePMBR(bootable bool) error {
	b := make([]byte, l.dev.SectorSize())

	const maxUint32 = 0xFFFFFFFF

	sectors := l.dev.TotalSectors() - 1
	if sectors > maxUint32 {
		sectors = maxUint32
	}

	entry := b[446:462]

	if bootable {
		entry[0] = 0x80
	}

	entry[4] = 0xEE
	entry[8] = 1
	entry[9] = 0
	entry[10] = 0
	entry[11] = 0

	putLE32(entry[12:16], uint32(sectors)) //nolint:gosec // capped above

	b[510] = 0x55
	b[511] = 0xAA

	return writeSector(l.dev, pmbrLBA, b)
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
