// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package mbr_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/gpartitions/disklabel/disktest"
	"github.com/gpartitions/disklabel/ebr"
	"github.com/gpartitions/disklabel/geometry"
	"github.com/gpartitions/disklabel/mbr"
)

type MBRSuite struct {
	disktest.BlockDeviceSuite
}

func TestMBRSuite(t *testing.T) {
	suite.Run(t, new(MBRSuite))
}

// S1: MBR with one primary.
func (s *MBRSuite) TestSinglePrimary() {
	s.CreateBlockDevice(100 << 20)

	label := mbr.New(s.Dev, nil, 0)

	startRange, err := geometry.New(2048, 2)
	s.Require().NoError(err)
	endRange, err := geometry.New(204798, 2)
	s.Require().NoError(err)

	part, err := label.CreatePartition(startRange, endRange, "PRIMARY")
	s.Require().NoError(err)
	s.Equal(1, part.Number())
	s.Equal("PRIMARY", part.Type())

	s.Require().NoError(label.Commit())

	sector, err := s.Dev.ReadAt(0, 0, mbr.SectorSize)
	s.Require().NoError(err)

	s.Equal(byte(0x55), sector[0x1FE])
	s.Equal(byte(0xAA), sector[0x1FF])
	s.Equal(byte(0x83), sector[0x1BE+4])

	reprobed, err := mbr.Probe(s.Dev, nil, 0)
	s.Require().NoError(err)
	s.Require().Len(reprobed.Partitions(), 1)
	s.Equal(uint64(2048), reprobed.Partitions()[0].Start())
	s.Equal(uint64(202751), reprobed.Partitions()[0].(interface{ Length() uint64 }).Length())
}

// S2: MBR → extended → two logicals.
func (s *MBRSuite) TestExtendedWithTwoLogicals() {
	s.CreateBlockDevice(100 << 20)

	label := mbr.New(s.Dev, nil, 0)

	startRange, err := geometry.New(2048, 1)
	s.Require().NoError(err)
	endRange, err := geometry.New(204799, 1)
	s.Require().NoError(err)

	ext, err := label.CreatePartition(startRange, endRange, "EXTENDED-LBA")
	s.Require().NoError(err)
	s.True(ext.HaveDisklabel())

	ebrLabel, ok := ext.Disklabel().(*ebr.Label)
	s.Require().True(ok)
	s.Equal("EBR", ebrLabel.System())

	l1s, err := geometry.New(2049, 1)
	s.Require().NoError(err)
	l1e, err := geometry.New(100000, 1)
	s.Require().NoError(err)

	_, err = ebrLabel.CreatePartition(l1s, l1e, "LOGICAL")
	s.Require().NoError(err)

	l2s, err := geometry.New(100002, 1)
	s.Require().NoError(err)
	l2e, err := geometry.New(204799, 1)
	s.Require().NoError(err)

	_, err = ebrLabel.CreatePartition(l2s, l2e, "LOGICAL")
	s.Require().NoError(err)

	s.Require().Len(ebrLabel.Partitions(), 2)

	s.Require().NoError(label.Commit())

	reprobed, err := mbr.Probe(s.Dev, nil, 0)
	s.Require().NoError(err)
	s.Require().Len(reprobed.Partitions(), 1)
	s.Equal("EXTENDED LBA", reprobed.Partitions()[0].Type())
}

// S5: overlap rejection.
func (s *MBRSuite) TestOverlapRejected() {
	s.CreateBlockDevice(100 << 20)

	label := mbr.New(s.Dev, nil, 0)

	r1s, err := geometry.New(2048, 1)
	s.Require().NoError(err)
	r1e, err := geometry.New(4095, 1)
	s.Require().NoError(err)

	_, err = label.CreatePartition(r1s, r1e, "PRIMARY")
	s.Require().NoError(err)

	r2s, err := geometry.New(3000, 1)
	s.Require().NoError(err)
	r2e, err := geometry.New(5000, 1)
	s.Require().NoError(err)

	_, err = label.CreatePartition(r2s, r2e, "PRIMARY")
	s.Require().Error(err)
}
