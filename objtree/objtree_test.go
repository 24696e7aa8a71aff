// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package objtree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpartitions/disklabel/objtree"
)

type fakeNode struct {
	*objtree.Base

	start, end uint64
}

func (f *fakeNode) Start() uint64 { return f.start }
func (f *fakeNode) End() uint64   { return f.end }

func TestCastWalksParentChain(t *testing.T) {
	device := &fakeNode{start: 0, end: 100}
	device.Base = objtree.NewBase(objtree.KindDevice, nil, nil)

	disklabel := &fakeNode{start: 0, end: 100}
	disklabel.Base = objtree.NewBase(objtree.KindDisklabel, device, nil)

	partition := &fakeNode{start: 10, end: 20}
	partition.Base = objtree.NewBase(objtree.KindPartition, disklabel, nil)

	got, err := objtree.Cast(partition, objtree.KindDevice)
	require.NoError(t, err)
	assert.Same(t, device, got)

	got, err = objtree.Cast(partition, objtree.KindDisklabel)
	require.NoError(t, err)
	assert.Same(t, disklabel, got)

	got, err = objtree.Cast(partition, objtree.KindPartition)
	require.NoError(t, err)
	assert.Same(t, partition, got)
}

func TestCastFailsWithoutAncestor(t *testing.T) {
	device := &fakeNode{}
	device.Base = objtree.NewBase(objtree.KindDevice, nil, nil)

	_, err := objtree.Cast(device, objtree.KindPartition)
	require.Error(t, err)
}

func TestRefCounting(t *testing.T) {
	released := false

	b := objtree.NewBase(objtree.KindPartition, nil, func() { released = true })
	assert.EqualValues(t, 1, b.RefCount())

	b.Ref()
	assert.EqualValues(t, 2, b.RefCount())

	b.Unref()
	assert.False(t, released)
	assert.EqualValues(t, 1, b.RefCount())

	b.Unref()
	assert.True(t, released)
	assert.EqualValues(t, 0, b.RefCount())
}

func TestDoubleUnrefPanics(t *testing.T) {
	b := objtree.NewBase(objtree.KindPartition, nil, nil)
	b.Unref()

	assert.Panics(t, func() { b.Unref() })
}
