// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package chs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpartitions/disklabel/chs"
)

func TestRoundTrip(t *testing.T) {
	g := chs.Geometry{Heads: 255, SectorsPerTrack: 63}

	maxLBA := uint64(1023)*uint64(g.Heads)*uint64(g.SectorsPerTrack) + uint64(g.Heads-1)*uint64(g.SectorsPerTrack) + uint64(g.SectorsPerTrack-1)

	for lba := uint64(0); lba < maxLBA; lba += 997 {
		addr, err := chs.FromLBA(lba, g)
		require.NoError(t, err)

		got, err := chs.ToLBA(addr, g)
		require.NoError(t, err)

		assert.Equal(t, lba, got, "lba=%d addr=%+v", lba, addr)
	}
}

func TestEncodeDecode(t *testing.T) {
	addr := chs.Addr{Cylinder: 900, Head: 200, Sector: 37}

	packed := chs.Encode(addr)
	decoded := chs.Decode(packed)

	assert.Equal(t, addr, decoded)
}

func TestZeroGeometryRejected(t *testing.T) {
	_, err := chs.ToLBA(chs.Addr{Sector: 1}, chs.Geometry{})
	require.Error(t, err)

	_, err = chs.FromLBA(0, chs.Geometry{})
	require.Error(t, err)
}
