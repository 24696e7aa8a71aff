// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package blockio

import (
	"os"

	"github.com/gpartitions/disklabel/dlerrors"
	"github.com/gpartitions/disklabel/internal/ioutil"
)

// FileDevice is the default BlockDevice implementation: a regular file or
// block special opened by path, with geometry either probed (Linux) or
// supplied via explicit overrides (§6 open options / set_parameter).
type FileDevice struct {
	f *os.File

	sectorSize uint32
	minAlign   uint32
	optAlign   uint32

	cylinders *uint32
	heads     *uint32
	sectors   *uint32

	readOnly bool
}

// Open opens path as a FileDevice, probing topology where the platform
// supports it and falling back to DefaultSectorSize otherwise. Recognized
// suboptions (§6) override any probed values.
func Open(path string, opts Options) (*FileDevice, error) {
	flag := os.O_RDWR
	if opts.ReadOnly {
		flag = os.O_RDONLY
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, dlerrors.Newf(dlerrors.KindPath, "open %q: %v", path, err).WithField("path").Wrap(err)
	}

	dev := &FileDevice{f: f, readOnly: opts.ReadOnly}

	probeGeometry(dev)

	dev.applyOverrides(opts)

	return dev, nil
}

// OpenFile wraps an already-open *os.File (e.g. for a file created by a
// test) without reopening it.
func OpenFile(f *os.File, opts Options) *FileDevice {
	dev := &FileDevice{f: f, readOnly: opts.ReadOnly}

	probeGeometry(dev)

	dev.applyOverrides(opts)

	return dev
}

func (d *FileDevice) applyOverrides(opts Options) {
	if opts.Cylinders != nil {
		d.cylinders = opts.Cylinders
	}

	if opts.Heads != nil {
		d.heads = opts.Heads
	}

	if opts.Sectors != nil {
		d.sectors = opts.Sectors
	}

	if opts.SectorSize != nil {
		d.sectorSize = *opts.SectorSize
	}

	if d.sectorSize == 0 {
		d.sectorSize = DefaultSectorSize
	}
}

// Close closes the underlying file.
func (d *FileDevice) Close() error {
	return d.f.Close()
}

// ReadAt implements BlockDevice.
func (d *FileDevice) ReadAt(lba uint64, off int64, length int) ([]byte, error) {
	b := make([]byte, length)

	byteOff := int64(lba)*int64(d.sectorSize) + off

	if err := ioutil.ReadFullAt(d.f, b, byteOff); err != nil {
		return nil, dlerrors.Newf(dlerrors.KindIO, "read lba=%d off=%d len=%d: %v", lba, off, length, err).Wrap(err)
	}

	return b, nil
}

// WriteAt implements BlockDevice.
func (d *FileDevice) WriteAt(lba uint64, off int64, b []byte) error {
	if d.readOnly {
		return dlerrors.New(dlerrors.KindIO, "device opened read-only")
	}

	byteOff := int64(lba)*int64(d.sectorSize) + off

	n, err := d.f.WriteAt(b, byteOff)
	if err != nil {
		return dlerrors.Newf(dlerrors.KindIO, "write lba=%d off=%d len=%d: %v", lba, off, len(b), err).Wrap(err)
	}

	if n != len(b) {
		return dlerrors.Newf(dlerrors.KindIO, "short write: wanted %d, wrote %d", len(b), n)
	}

	return nil
}

// Sync implements BlockDevice.
func (d *FileDevice) Sync() error {
	if d.readOnly {
		return nil
	}

	if err := d.f.Sync(); err != nil {
		return dlerrors.Newf(dlerrors.KindIO, "sync: %v", err).Wrap(err)
	}

	return nil
}

// SectorSize implements BlockDevice.
func (d *FileDevice) SectorSize() uint32 {
	return d.sectorSize
}

// TotalSectors implements BlockDevice.
func (d *FileDevice) TotalSectors() uint64 {
	st, err := d.f.Stat()
	if err != nil {
		return 0
	}

	return uint64(st.Size()) / uint64(d.sectorSize)
}

// Cylinders implements BlockDevice.
func (d *FileDevice) Cylinders() (uint32, error) {
	if d.cylinders == nil {
		return 0, geometryError(dlerrors.KindCylinders, "cylinders")
	}

	return *d.cylinders, nil
}

// Heads implements BlockDevice.
func (d *FileDevice) Heads() (uint32, error) {
	if d.heads == nil {
		return 0, geometryError(dlerrors.KindHeads, "heads")
	}

	return *d.heads, nil
}

// SectorsPerTrack implements BlockDevice.
func (d *FileDevice) SectorsPerTrack() (uint32, error) {
	if d.sectors == nil {
		return 0, geometryError(dlerrors.KindSectors, "sectors-per-track")
	}

	return *d.sectors, nil
}

// MinimumAlignment implements BlockDevice.
func (d *FileDevice) MinimumAlignment() uint32 {
	return d.minAlign
}

// OptimalAlignment implements BlockDevice.
func (d *FileDevice) OptimalAlignment() uint32 {
	return d.optAlign
}

// SetParameter implements the set_parameter side of §6 for the four
// recognized parameters, validating the payload width per
// ValidateParameterSize.
func (d *FileDevice) SetParameter(p Parameter, payload []byte) error {
	if err := ValidateParameterSize(len(payload)); err != nil {
		return err
	}

	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(payload[i]) << (8 * i)
	}

	value := uint32(v)

	switch p {
	case ParameterCylinders:
		d.cylinders = &value
	case ParameterHeads:
		d.heads = &value
	case ParameterSectors:
		d.sectors = &value
	case ParameterSectorSize:
		if value == 0 {
			return dlerrors.New(dlerrors.KindSectorSize, "sector-size must be > 0")
		}

		d.sectorSize = value
	default:
		return dlerrors.Newf(dlerrors.KindParameter, "unknown parameter %v", p)
	}

	return nil
}
