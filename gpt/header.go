// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package gpt implements the GUID Partition Table disklabel (C9): dual
// primary/backup headers, a 128-by-default entry array, CRC32 validation
// on probe, and CRC32 regeneration whenever the label is serialized.
package gpt

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/google/uuid"

	"github.com/gpartitions/disklabel/blockio"
	"github.com/gpartitions/disklabel/dlerrors"
)

// MagicEFIPart is the GPT header signature.
const MagicEFIPart = "EFI PART"

// HeaderSize is the on-disk GPT header size in bytes (§6).
const HeaderSize = 92

// BasicDataGUID is the Microsoft Basic Data partition type GUID assigned
// to every partition this package creates (§4.7 step 6; GPT partition-type
// enumeration beyond this is an explicit non-goal).
var BasicDataGUID = uuid.MustParse("EBD0A0A2-B9E5-4433-87C0-68B6B72699C7")

// Header is the in-memory representation of a GPT header. Fields mirror
// the on-disk layout of §6 exactly; CurrentLBA/BackupLBA are absolute
// device LBAs (the standard GPT convention; a protective-MBR GuidProtective
// partition always spans LBA 1 through the end of the device).
type Header struct {
	Revision     uint32
	Size         uint32
	CurrentLBA   uint64
	BackupLBA    uint64
	FirstUsable  uint64
	LastUsable   uint64
	DiskGUID     uuid.UUID
	EntriesLBA   uint64
	NumEntries   uint32
	EntrySize    uint32
	EntriesCRC32 uint32
}

// serialize writes h into a sectorSize-sized buffer, with header_crc32
// computed over [0, Size) with that field zeroed during the calculation
// (invariant 4).
func (h *Header) serialize(sectorSize uint32) []byte {
	buf := make([]byte, sectorSize)

	copy(buf[0:8], []byte(MagicEFIPart))
	binary.LittleEndian.PutUint32(buf[8:12], h.Revision)
	binary.LittleEndian.PutUint32(buf[12:16], h.Size)
	// buf[16:20] header_crc32 left zero for the calculation below.
	// buf[20:24] reserved, left zero.
	binary.LittleEndian.PutUint64(buf[24:32], h.CurrentLBA)
	binary.LittleEndian.PutUint64(buf[32:40], h.BackupLBA)
	binary.LittleEndian.PutUint64(buf[40:48], h.FirstUsable)
	binary.LittleEndian.PutUint64(buf[48:56], h.LastUsable)

	guidBytes, _ := h.DiskGUID.MarshalBinary() //nolint:errcheck // uuid.UUID.MarshalBinary never fails
	copy(buf[56:72], toMiddleEndian(guidBytes))

	binary.LittleEndian.PutUint64(buf[72:80], h.EntriesLBA)
	binary.LittleEndian.PutUint32(buf[80:84], h.NumEntries)
	binary.LittleEndian.PutUint32(buf[84:88], h.EntrySize)
	binary.LittleEndian.PutUint32(buf[88:92], h.EntriesCRC32)

	crc := crc32.ChecksumIEEE(buf[0:h.Size])
	binary.LittleEndian.PutUint32(buf[16:20], crc)

	return buf
}

func deserializeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, dlerrors.New(dlerrors.KindIO, "gpt: header sector shorter than header size")
	}

	if string(buf[0:8]) != MagicEFIPart {
		return nil, dlerrors.Newf(dlerrors.KindInternal, "gpt: bad signature %q", buf[0:8])
	}

	size := binary.LittleEndian.Uint32(buf[12:16])
	if size < HeaderSize || int(size) > len(buf) {
		return nil, dlerrors.Newf(dlerrors.KindInternal, "gpt: implausible header size %d", size)
	}

	storedCRC := binary.LittleEndian.Uint32(buf[16:20])

	check := make([]byte, size)
	copy(check, buf[0:size])
	check[16], check[17], check[18], check[19] = 0, 0, 0, 0

	if crc32.ChecksumIEEE(check) != storedCRC {
		return nil, dlerrors.New(dlerrors.KindInternal, "gpt: header CRC mismatch").Wrap(ErrHeaderCRCMismatch)
	}

	guid, err := uuid.FromBytes(fromMiddleEndian(buf[56:72]))
	if err != nil {
		return nil, dlerrors.Newf(dlerrors.KindInternal, "gpt: invalid disk GUID: %v", err).Wrap(err)
	}

	h := &Header{
		Revision:     binary.LittleEndian.Uint32(buf[8:12]),
		Size:         size,
		CurrentLBA:   binary.LittleEndian.Uint64(buf[24:32]),
		BackupLBA:    binary.LittleEndian.Uint64(buf[32:40]),
		FirstUsable:  binary.LittleEndian.Uint64(buf[40:48]),
		LastUsable:   binary.LittleEndian.Uint64(buf[48:56]),
		DiskGUID:     guid,
		EntriesLBA:   binary.LittleEndian.Uint64(buf[72:80]),
		NumEntries:   binary.LittleEndian.Uint32(buf[80:84]),
		EntrySize:    binary.LittleEndian.Uint32(buf[84:88]),
		EntriesCRC32: binary.LittleEndian.Uint32(buf[88:92]),
	}

	return h, nil
}

// backupOf returns the backup-header variant of h: same fields except
// CurrentLBA/BackupLBA and EntriesLBA, which point at the secondary copy
// (invariant 4).
func (h *Header) backupOf(secondaryEntriesLBA uint64) *Header {
	backup := *h
	backup.CurrentLBA, backup.BackupLBA = h.BackupLBA, h.CurrentLBA
	backup.EntriesLBA = secondaryEntriesLBA

	return &backup
}

// crc32OfEntries computes the entries_crc32 header field (invariant 4).
func crc32OfEntries(raw []byte) uint32 {
	return crc32.ChecksumIEEE(raw)
}

func readSector(dev blockio.BlockDevice, lba uint64) ([]byte, error) {
	return dev.ReadAt(lba, 0, int(dev.SectorSize()))
}

func writeSector(dev blockio.BlockDevice, lba uint64, b []byte) error {
	return dev.WriteAt(lba, 0, b)
}
