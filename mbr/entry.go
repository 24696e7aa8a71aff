// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package mbr implements the Master Boot Record disklabel (C7): a 4-entry
// primary partition table classifying each entry as Primary, DOS/LBA
// Extended, or EFI-protective.
package mbr

import (
	"encoding/binary"

	"github.com/gpartitions/disklabel/chs"
)

// On-disk layout constants (§6).
const (
	SectorSize   = 512
	entryOffset  = 0x1BE
	entrySize    = 16
	numEntries   = 4
	magicOffset  = 0x1FE
	statusBoot   = 0x80
	statusIdle   = 0x00
	typeEmpty    = 0x00
	typePrimary  = 0x83
	typeDOSExt   = 0x05
	typeLBAExt   = 0x0F
	typeLBAExt2  = 0x85
	typeGUIDProt = 0xEE
)

// rawEntry is the decoded form of one 16-byte on-disk entry.
type rawEntry struct {
	status    byte
	firstCHS  [3]byte
	partType  byte
	lastCHS   [3]byte
	firstLBA  uint32
	sectors   uint32
}

func decodeEntry(b []byte) rawEntry {
	return rawEntry{
		status:   b[0],
		firstCHS: [3]byte{b[1], b[2], b[3]},
		partType: b[4],
		lastCHS:  [3]byte{b[5], b[6], b[7]},
		firstLBA: binary.LittleEndian.Uint32(b[8:12]),
		sectors:  binary.LittleEndian.Uint32(b[12:16]),
	}
}

func (e rawEntry) encode(b []byte) {
	b[0] = e.status
	b[1], b[2], b[3] = e.firstCHS[0], e.firstCHS[1], e.firstCHS[2]
	b[4] = e.partType
	b[5], b[6], b[7] = e.lastCHS[0], e.lastCHS[1], e.lastCHS[2]
	binary.LittleEndian.PutUint32(b[8:12], e.firstLBA)
	binary.LittleEndian.PutUint32(b[12:16], e.sectors)
}

// maxCHS is written whenever device geometry is undetermined — the
// conventional "CHS overflow" sentinel real tools also emit. With known
// geometry, an LBA beyond the 10-bit cylinder range is not replaced by the
// sentinel; chs.FromLBA truncates its cylinder instead.
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
