// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package chs implements the packed 3-byte CHS (cylinder/head/sector)
// addressing scheme and its conversion to and from linear LBA, as used by
// MBR and EBR on-disk entries.
package chs

import "github.com/gpartitions/disklabel/dlerrors"

// Geometry is the per-device parameters CHS addressing is relative to.
type Geometry struct {
	Heads           uint32
	SectorsPerTrack uint32
}

// Addr is a decoded CHS address: 10-bit cylinder, 8-bit head, 6-bit
// (1-based) sector.
type Addr struct {
	Cylinder uint16
	Head     uint8
	Sector   uint8
}

// Decode unpacks the 3-byte on-disk CHS layout:
//
//	byte0 = head
//	byte1 = sector (low 6 bits) | cylinder high 2 bits (shifted into bits 6-7)
//	byte2 = cylinder low 8 bits
func Decode(b [3]byte) Addr {
	return Addr{
		Head:     b[0],
		Sector:   b[1] & 0x3F,
		Cylinder: uint16(b[2]) | uint16(b[1]&0xC0)<<2,
	}
}

// Encode packs an Addr into the 3-byte on-disk CHS layout. Cylinder is
// truncated to 10 bits; large disks are expected to be addressed via the
// accompanying LBA field instead.
func Encode(a Addr) [3]byte {
	cyl := a.Cylinder & 0x3FF

	return [3]byte{
		a.Head,
		(a.Sector & 0x3F) | byte((cyl>>2)&0xC0),
		byte(cyl & 0xFF),
	}
}

// ToLBA converts a CHS address to a linear LBA given the device geometry.
func ToLBA(a Addr, g Geometry) (uint64, error) {
	if g.Heads == 0 || g.SectorsPerTrack == 0 {
		return 0, dlerrors.New(dlerrors.KindGeometry, "chs: heads and sectors-per-track must be > 0")
	}

	if a.Sector == 0 {
		return 0, dlerrors.New(dlerrors.KindGeometry, "chs: sector is 1-based, got 0")
	}

	return (uint64(a.Cylinder)*uint64(g.Heads)+uint64(a.Head))*uint64(g.SectorsPerTrack) + uint64(a.Sector-1), nil
}

// FromLBA converts a linear LBA to a CHS address given the device geometry.
// Cylinder overflow beyond 10 bits is silently truncated: callers that need
// exact addressing of large disks use the LBA fields instead, per the
// standard MBR/EBR dual-addressing convention.
func FromLBA(lba uint64, g Geometry) (Addr, error) {
	if g.Heads == 0 || g.SectorsPerTrack == 0 {
		return Addr{}, dlerrors.New(dlerrors.KindGeometry, "chs: heads and sectors-per-track must be > 0")
	}

	spt := uint64(g.SectorsPerTrack)
	heads := uint64(g.Heads)

	cylinder := lba / (heads * spt)
	head := (lba / spt) % heads
	sector := (lba % spt) + 1

	return Addr{
		Cylinder: uint16(cylinder & 0x3FF),
		Head:     uint8(head),
		Sector:   uint8(sector),
	}, nil
}
