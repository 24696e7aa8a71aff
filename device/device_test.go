// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package device_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/gpartitions/disklabel/device"
	"github.com/gpartitions/disklabel/disklabel"
	"github.com/gpartitions/disklabel/disktest"
	"github.com/gpartitions/disklabel/dlerrors"
)

type NodeSuite struct {
	disktest.BlockDeviceSuite
}

func TestNodeSuite(t *testing.T) {
	suite.Run(t, new(NodeSuite))
}

func (s *NodeSuite) TestCommitWithoutDisklabelFails() {
	s.CreateBlockDevice(8 << 20)

	node := device.New(s.Dev)
	s.Equal(uint64(0), node.Start())

	err := node.Commit()
	s.Require().Error(err)
	s.True(dlerrors.Is(err, dlerrors.KindInternal))
}

func (s *NodeSuite) TestSetDisklabelAndCommit() {
	s.CreateBlockDevice(8 << 20)

	node := device.New(s.Dev)

	label, err := disklabel.Create(s.Dev, node, "MBR")
	s.Require().NoError(err)

	node.SetDisklabel(label)

	s.Require().NoError(node.Commit())
	s.Equal("MBR", node.Disklabel().System())
}
