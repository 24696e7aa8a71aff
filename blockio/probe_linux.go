// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build linux

package blockio

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// hdGeometry mirrors Linux's struct hd_geometry (linux/hdreg.h), queried via
// the HDIO_GETGEO ioctl.
type hdGeometry struct {
	Heads     uint8
	Sectors   uint8
	Cylinders uint16
	Start     uint64
}

const hdioGetGeo = 0x0301

// probeGeometry fills in whatever topology the kernel can report for an
// open file; a regular file (as opposed to a block special) yields no
// geometry and DefaultSectorSize.
func probeGeometry(d *FileDevice) {
	var lsize int32
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), unix.BLKSSZGET, uintptr(unsafe.Pointer(&lsize))); errno == 0 {
		d.sectorSize = uint32(lsize)
	}

	var psize int32
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), unix.BLKPBSZGET, uintptr(unsafe.Pointer(&psize))); errno == 0 {
		d.minAlign = uint32(psize)
		d.optAlign = uint32(psize)
	}

	for _, ioctl := range []uintptr{unix.BLKIOOPT, unix.BLKIOMIN} {
		var size uint32
		if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), ioctl, uintptr(unsafe.Pointer(&size))); errno == 0 && size > 0 {
			d.optAlign = size

			break
		}
	}

	var geo hdGeometry
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), hdioGetGeo, uintptr(unsafe.Pointer(&geo))); errno == 0 {
		cyl := uint32(geo.Cylinders)
		heads := uint32(geo.Heads)
		sectors := uint32(geo.Sectors)

		d.cylinders = &cyl
		d.heads = &heads
		d.sectors = &sectors
	}
}
