// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package geometry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpartitions/disklabel/geometry"
)

func TestNewRejectsZeroLength(t *testing.T) {
	_, err := geometry.New(10, 0)
	require.Error(t, err)
}

func TestEndAndMidpoint(t *testing.T) {
	g, err := geometry.New(100, 11)
	require.NoError(t, err)

	assert.Equal(t, uint64(110), g.End())
	assert.Equal(t, uint64(105), g.Midpoint())
	assert.True(t, g.Contains(100))
	assert.True(t, g.Contains(110))
	assert.False(t, g.Contains(111))
}

func TestRound(t *testing.T) {
	v, err := geometry.Round(7, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), v)

	v, err = geometry.Round(5, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), v) // tie breaks down

	v, err = geometry.RoundUp(1, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), v)

	v, err = geometry.RoundDown(7, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), v)

	_, err = geometry.Round(1, 0)
	require.Error(t, err)
}

func TestDuplicate(t *testing.T) {
	g, err := geometry.New(1, 2)
	require.NoError(t, err)

	d := g.Duplicate()
	assert.Equal(t, g.Start(), d.Start())
	assert.Equal(t, g.Length(), d.Length())
}
