// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package disktest contains common test scaffolding shared by the
// device/disklabel/mbr/ebr test suites: a blank, file-backed
// BlockDevice of a given size.
package disktest

import (
	"os"

	"github.com/stretchr/testify/suite"

	"github.com/gpartitions/disklabel/blockio"
)

// BlockDeviceSuite is a common base for tests that need a blank,
// file-backed device. Unlike the source's loopback-device scaffolding,
// this exercises the FileDevice adapter directly: the core never requires
// a real block special to be tested end to end.
type BlockDeviceSuite struct {
	suite.Suite

	File *os.File
	Dev  *blockio.FileDevice
}

// CreateBlockDevice creates a blank, size-byte backing file and opens it
// as a BlockDevice.
func (s *BlockDeviceSuite) CreateBlockDevice(size int64) {
	var err error

	s.File, err = os.CreateTemp("", "disklabel-test")
	s.Require().NoError(err)

	s.Require().NoError(s.File.Truncate(size))

	s.Dev = blockio.OpenFile(s.File, blockio.Options{})
}

// TearDownTest implements suite.TearDownTestSuite.
func (s *BlockDeviceSuite) TearDownTest() {
	if s.Dev != nil {
		s.Assert().NoError(s.Dev.Close())
		s.Dev = nil
	}

	if s.File != nil {
		s.Assert().NoError(os.Remove(s.File.Name()))
		s.File = nil
	}
}
