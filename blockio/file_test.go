// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package blockio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpartitions/disklabel/blockio"
	"github.com/gpartitions/disklabel/dlerrors"
)

func tempDevice(t *testing.T, size int64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "device.img")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())

	return path
}

func TestOpenReadWrite(t *testing.T) {
	path := tempDevice(t, 1<<20)

	dev, err := blockio.Open(path, blockio.Options{})
	require.NoError(t, err)
	defer dev.Close()

	require.Equal(t, uint32(blockio.DefaultSectorSize), dev.SectorSize())

	payload := []byte("hello, sector")
	require.NoError(t, dev.WriteAt(2, 10, payload))

	got, err := dev.ReadAt(2, 10, len(payload))
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestOpenWithOverrides(t *testing.T) {
	path := tempDevice(t, 1<<20)

	opts, err := blockio.ParseOptions("cylinders=100,heads=16,sectors=63,sector-size=512")
	require.NoError(t, err)

	dev, err := blockio.Open(path, opts)
	require.NoError(t, err)
	defer dev.Close()

	cyl, err := dev.Cylinders()
	require.NoError(t, err)
	require.Equal(t, uint32(100), cyl)

	heads, err := dev.Heads()
	require.NoError(t, err)
	require.Equal(t, uint32(16), heads)

	spt, err := dev.SectorsPerTrack()
	require.NoError(t, err)
	require.Equal(t, uint32(63), spt)
}

func TestMissingGeometryFails(t *testing.T) {
	path := tempDevice(t, 1<<20)

	dev, err := blockio.Open(path, blockio.Options{})
	require.NoError(t, err)
	defer dev.Close()

	_, err = dev.Cylinders()
	require.Error(t, err)
	require.True(t, dlerrors.Is(err, dlerrors.KindCylinders))
}

func TestReadOnlyRejectsWrite(t *testing.T) {
	path := tempDevice(t, 1<<20)

	dev, err := blockio.Open(path, blockio.Options{ReadOnly: true})
	require.NoError(t, err)
	defer dev.Close()

	err = dev.WriteAt(0, 0, []byte{0x01})
	require.Error(t, err)
}

func TestParseOptionsRejectsUnknown(t *testing.T) {
	_, err := blockio.ParseOptions("bogus=1")
	require.Error(t, err)
}

func TestSetParameter(t *testing.T) {
	path := tempDevice(t, 1<<20)

	dev, err := blockio.Open(path, blockio.Options{})
	require.NoError(t, err)
	defer dev.Close()

	payload := make([]byte, 8)
	payload[0] = 200

	require.NoError(t, dev.SetParameter(blockio.ParameterCylinders, payload))

	cyl, err := dev.Cylinders()
	require.NoError(t, err)
	require.Equal(t, uint32(200), cyl)

	require.Error(t, dev.SetParameter(blockio.ParameterCylinders, []byte{0x01}))
}
