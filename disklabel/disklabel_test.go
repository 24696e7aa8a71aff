// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package disklabel_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/gpartitions/disklabel/disklabel"
	"github.com/gpartitions/disklabel/disktest"
)

type DispatcherSuite struct {
	disktest.BlockDeviceSuite
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) TestCreateGPTThenProbe() {
	s.CreateBlockDevice(64 << 20)

	node, err := disklabel.Open(s.Dev)
	s.Require().NoError(err)
	s.Nil(node.Disklabel())

	label, err := disklabel.Create(s.Dev, node, "gpt")
	s.Require().NoError(err)
	s.Equal("GPT", label.System())

	node.SetDisklabel(label)
	s.Require().NoError(node.Commit())

	reprobed, err := disklabel.Open(s.Dev)
	s.Require().NoError(err)
	s.Require().NotNil(reprobed.Disklabel())
	s.Equal("GPT", reprobed.Disklabel().System())
}

func (s *DispatcherSuite) TestCreateMBRThenProbe() {
	s.CreateBlockDevice(64 << 20)

	node, err := disklabel.Open(s.Dev)
	s.Require().NoError(err)

	label, err := disklabel.Create(s.Dev, node, "MBR")
	s.Require().NoError(err)

	node.SetDisklabel(label)
	s.Require().NoError(node.Commit())

	reprobed, err := disklabel.Open(s.Dev)
	s.Require().NoError(err)
	s.Require().NotNil(reprobed.Disklabel())
	s.Equal("MBR", reprobed.Disklabel().System())
}

func (s *DispatcherSuite) TestUnknownSystemRejected() {
	s.CreateBlockDevice(64 << 20)

	node, err := disklabel.Open(s.Dev)
	s.Require().NoError(err)

	_, err = disklabel.Create(s.Dev, node, "zfs")
	s.Require().Error(err)
}
