// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt_test

import (
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpartitions/disklabel/blockio"
	"github.com/gpartitions/disklabel/geometry"
	"github.com/gpartitions/disklabel/gpt"
)

func tempDevice(t *testing.T, size int64) *blockio.FileDevice {
	t.Helper()

	path := filepath.Join(t.TempDir(), "device.img")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())

	dev, err := blockio.Open(path, blockio.Options{})
	require.NoError(t, err)

	t.Cleanup(func() { dev.Close() })

	return dev
}

func TestCRC32ReferenceValue(t *testing.T) {
	// S6: crc32(b"123456789", 0xFFFFFFFF) ^ 0xFFFFFFFF == 0xCBF43926.
	require.Equal(t, uint32(0xCBF43926), crc32.ChecksumIEEE([]byte("123456789")))
}

func TestCreateRemoveReprobe(t *testing.T) {
	dev := tempDevice(t, 4<<20)

	label, err := gpt.New(dev, nil)
	require.NoError(t, err)

	startRange, err := geometry.New(2048, 1)
	require.NoError(t, err)
	endRange, err := geometry.New(4095, 1)
	require.NoError(t, err)

	part, err := label.CreatePartition(startRange, endRange, "PRIMARY", gpt.WithPartitionName("root"))
	require.NoError(t, err)
	require.Equal(t, 1, part.Number())

	require.Len(t, label.Partitions(), 1)
	require.Equal(t, part, label.FindByName("root"))

	require.NoError(t, label.Commit())

	reprobed, err := gpt.Probe(dev, nil)
	require.NoError(t, err)
	require.Len(t, reprobed.Partitions(), 1)
	require.Equal(t, "root", reprobed.Partitions()[0].(*gpt.Partition).Name)

	require.NoError(t, reprobed.RemovePartition(1))
	require.Empty(t, reprobed.Partitions())

	require.NoError(t, reprobed.Commit())

	final, err := gpt.Probe(dev, nil)
	require.NoError(t, err)
	require.Empty(t, final.Partitions())
}

func TestOverlapRejected(t *testing.T) {
	dev := tempDevice(t, 4<<20)

	label, err := gpt.New(dev, nil)
	require.NoError(t, err)

	r1s, _ := geometry.New(2048, 1)
	r1e, _ := geometry.New(4095, 1)
	_, err = label.CreatePartition(r1s, r1e, "PRIMARY")
	require.NoError(t, err)

	r2s, _ := geometry.New(3000, 1)
	r2e, _ := geometry.New(5000, 1)
	_, err = label.CreatePartition(r2s, r2e, "PRIMARY")
	require.Error(t, err)
}

func TestBackupHeaderConsistency(t *testing.T) {
	dev := tempDevice(t, 4<<20)

	label, err := gpt.New(dev, nil)
	require.NoError(t, err)

	startRange, _ := geometry.New(2048, 1)
	endRange, _ := geometry.New(4095, 1)
	_, err = label.CreatePartition(startRange, endRange, "PRIMARY")
	require.NoError(t, err)

	require.NoError(t, label.Commit())

	backupLBA := dev.TotalSectors() - 1
	backupSector, err := dev.ReadAt(backupLBA, 0, int(dev.SectorSize()))
	require.NoError(t, err)
	require.Equal(t, []byte("EFI PART"), backupSector[0:8])
}
