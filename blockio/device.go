// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package blockio defines the BlockDevice capability the disklabel engine
// consumes, and provides a file-backed implementation of it. The real
// ioctl/blkid-topology backend described in the specification's "pluggable
// device backend" is an external collaborator; this package supplies only
// the minimal, portable adapter the core needs to be testable end to end.
package blockio

import "github.com/gpartitions/disklabel/dlerrors"

// BlockDevice is the capability the disklabel engine requires of its
// backing store: sized seek/read/write plus sector size, CHS geometry and
// alignment hints. Geometry fields may be unavailable (never probed, or the
// backend is a plain file); callers that need them must handle
// KindCylinders/KindHeads/KindSectors/KindSectorSize errors.
type BlockDevice interface {
	// ReadAt reads length bytes at byte offset off within the logical
	// block lba.
	ReadAt(lba uint64, off int64, length int) ([]byte, error)
	// WriteAt writes b at byte offset off within the logical block lba.
	WriteAt(lba uint64, off int64, b []byte) error

	// SectorSize returns the logical sector size in bytes. Defaults to
	// 512 when the backend cannot determine it.
	SectorSize() uint32

	// TotalSectors returns the device size in units of SectorSize.
	TotalSectors() uint64

	// Cylinders, Heads and SectorsPerTrack return the legacy CHS
	// geometry. They fail with dlerrors.KindCylinders / KindHeads /
	// KindSectors respectively when the topology is undetermined.
	Cylinders() (uint32, error)
	Heads() (uint32, error)
	SectorsPerTrack() (uint32, error)

	// MinimumAlignment and OptimalAlignment return alignment hints in
	// bytes; 0 means "no preference beyond the sector size".
	MinimumAlignment() uint32
	OptimalAlignment() uint32

	// Sync flushes any buffered writes to the backing store.
	Sync() error
}

// DefaultSectorSize is used whenever topology cannot be determined.
const DefaultSectorSize = 512

func geometryError(kind dlerrors.Kind, what string) error {
	return dlerrors.New(kind, what+" is undetermined for this device")
}
