// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ebr_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/gpartitions/disklabel/disktest"
	"github.com/gpartitions/disklabel/dlerrors"
	"github.com/gpartitions/disklabel/ebr"
	"github.com/gpartitions/disklabel/geometry"
)

type EBRSuite struct {
	disktest.BlockDeviceSuite
}

func TestEBRSuite(t *testing.T) {
	suite.Run(t, new(EBRSuite))
}

func (s *EBRSuite) TestCreateAndReprobe() {
	s.CreateBlockDevice(100 << 20)

	label := ebr.New(s.Dev, nil, 2048, 204799, true)

	s1, err := geometry.New(2049, 1)
	s.Require().NoError(err)
	e1, err := geometry.New(100000, 1)
	s.Require().NoError(err)

	part, err := label.CreatePartition(s1, e1, "LOGICAL")
	s.Require().NoError(err)
	s.Equal("LOGICAL", part.Type())
	s.Equal(1, part.Number())

	s.Require().NoError(label.Commit())

	reprobed, err := ebr.Probe(s.Dev, nil, 2048, 204799, true)
	s.Require().NoError(err)
	s.Require().Len(reprobed.Partitions(), 1)
	s.Equal(part.Start(), reprobed.Partitions()[0].Start())
}

func (s *EBRSuite) TestOverlapRejected() {
	s.CreateBlockDevice(100 << 20)

	label := ebr.New(s.Dev, nil, 2048, 204799, true)

	s1, err := geometry.New(2049, 1)
	s.Require().NoError(err)
	e1, err := geometry.New(100000, 1)
	s.Require().NoError(err)

	_, err = label.CreatePartition(s1, e1, "LOGICAL")
	s.Require().NoError(err)

	s2, err := geometry.New(50000, 1)
	s.Require().NoError(err)
	e2, err := geometry.New(150000, 1)
	s.Require().NoError(err)

	_, err = label.CreatePartition(s2, e2, "LOGICAL")
	s.Require().Error(err)
}

func (s *EBRSuite) TestNestedExtendedRequiresLBAMode() {
	s.CreateBlockDevice(100 << 20)

	label := ebr.New(s.Dev, nil, 2048, 204799, false)

	s1, err := geometry.New(2049, 1)
	s.Require().NoError(err)
	e1, err := geometry.New(100000, 1)
	s.Require().NoError(err)

	_, err = label.CreatePartition(s1, e1, "EXTENDED")
	s.Require().Error(err)
	s.True(dlerrors.Is(err, dlerrors.KindPartitionType))
}
