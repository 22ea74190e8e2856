// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2019 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package storage_test

import (
	"testing"

	. "gopkg.in/check.v1"

	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/quantity"
	"github.com/canonical/guided-storage-planner/storage"
)

func Test(t *testing.T) { TestingT(t) }

type modelSuite struct{}

var _ = Suite(&modelSuite{})

func gptAlign() geometry.AlignmentData {
	return geometry.AlignmentData{
		MinStartOffset: quantity.Offset(1 * quantity.SizeMiB),
		PartAlign:      quantity.SizeMiB,
		EndAlignment:   quantity.SizeMiB,
	}
}

func oneDisk() *storage.Disk {
	return &storage.Disk{
		ID_:     "disk-sda",
		Path:    "/dev/sda",
		Size_:   100 * quantity.SizeGiB,
		Schema_: geometry.SchemaGPT,
		Align:   gptAlign(),
	}
}

func (s *modelSuite) TestAddPartitionAndFormat(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, err := m.One("disk-sda")
	c.Assert(err, IsNil)

	part, err := m.AddPartition(wdisk, quantity.Offset(1*quantity.SizeMiB), 10*quantity.SizeGiB, storage.FlagNone, true)
	c.Assert(err, IsNil)
	c.Check(part.Number_, Equals, 1)

	fs, err := m.AddFilesystem(part, "ext4", "")
	c.Assert(err, IsNil)
	_, err = m.AddMount(fs, "/")
	c.Assert(err, IsNil)

	c.Check(m.IsRootMounted(), Equals, true)
	c.Check(len(m.ActionLog()) > 0, Equals, true)
}

func (s *modelSuite) TestAddPartitionOverlapRejected(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")

	_, err := m.AddPartition(wdisk, quantity.Offset(1*quantity.SizeMiB), 10*quantity.SizeGiB, storage.FlagNone, true)
	c.Assert(err, IsNil)

	_, err = m.AddPartition(wdisk, quantity.Offset(5*quantity.SizeGiB), 1*quantity.SizeGiB, storage.FlagNone, true)
	c.Check(err, ErrorMatches, ".*overlaps.*")
}

func (s *modelSuite) TestAddPartitionMisalignedRejected(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")

	_, err := m.AddPartition(wdisk, quantity.Offset(1*quantity.SizeMiB+1), 1*quantity.SizeGiB, storage.FlagNone, true)
	c.Check(err, ErrorMatches, ".*not a multiple.*")
}

func (s *modelSuite) TestCreatePartitionFillsGap(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")

	gap := geometry.Gaps(wdisk)[0]
	part, err := m.CreatePartition(wdisk, gap, storage.PartitionSpec{FSType: "ext4", Mount: "/"})
	c.Assert(err, IsNil)
	c.Check(part.Size_, Equals, gap.Size)
	c.Check(part.Filesystem, NotNil)
	c.Check(part.Filesystem.Mount.Path, Equals, "/")
}

func (s *modelSuite) TestDeletePartitionRemovesFormatAndMount(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")

	gap := geometry.Gaps(wdisk)[0]
	part, err := m.CreatePartition(wdisk, gap, storage.PartitionSpec{FSType: "ext4", Mount: "/"})
	c.Assert(err, IsNil)

	c.Assert(m.DeletePartition(part), IsNil)
	c.Check(wdisk.Parts, HasLen, 0)
}

func (s *modelSuite) TestReformatWipesAndCanChangeSchema(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")

	gap := geometry.Gaps(wdisk)[0]
	_, err := m.CreatePartition(wdisk, gap, storage.PartitionSpec{FSType: "ext4", Mount: "/"})
	c.Assert(err, IsNil)

	m.Reformat(wdisk, geometry.SchemaMSDOS)
	c.Check(wdisk.Parts, HasLen, 0)
	c.Check(wdisk.Schema_, Equals, geometry.SchemaMSDOS)
}

func (s *modelSuite) TestResetRestoresOriginalGeneration(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")

	gap := geometry.Gaps(wdisk)[0]
	_, err := m.CreatePartition(wdisk, gap, storage.PartitionSpec{FSType: "ext4", Mount: "/"})
	c.Assert(err, IsNil)

	m.Reset()
	back, err := m.One("disk-sda")
	c.Assert(err, IsNil)
	c.Check(back.Parts, HasLen, 0)
}

func (s *modelSuite) TestLoadProbeDataReplacesBothGenerations(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})

	newDisk := oneDisk()
	newDisk.Size_ = 200 * quantity.SizeGiB
	m.LoadProbeData([]*storage.Disk{newDisk})

	w, err := m.One("disk-sda")
	c.Assert(err, IsNil)
	c.Check(w.Size_, Equals, 200*quantity.SizeGiB)
	c.Check(m.OrigDisks()[0].Size_, Equals, 200*quantity.SizeGiB)
}

func (s *modelSuite) TestCreateVolumeGroupUniqueNaming(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	gap := geometry.Gaps(wdisk)[0]
	part, err := m.CreatePartition(wdisk, gap, storage.PartitionSpec{})
	c.Assert(err, IsNil)

	vg1, err := m.CreateVolumeGroup("ubuntu-vg", []storage.Volume{part}, nil, false)
	c.Assert(err, IsNil)
	c.Check(vg1.Name, Equals, "ubuntu-vg")

	vg2, err := m.CreateVolumeGroup("ubuntu-vg", []storage.Volume{part}, nil, false)
	c.Assert(err, IsNil)
	c.Check(vg2.Name, Equals, "ubuntu-vg-1")
}

func (s *modelSuite) TestCreateLogicalVolumeWithFilesystem(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	gap := geometry.Gaps(wdisk)[0]
	part, err := m.CreatePartition(wdisk, gap, storage.PartitionSpec{})
	c.Assert(err, IsNil)

	vg, err := m.CreateVolumeGroup("ubuntu-vg", []storage.Volume{part}, nil, true)
	c.Assert(err, IsNil)
	c.Check(vg.RecoveryKey, NotNil)

	lv, err := m.CreateLogicalVolume(vg, "ubuntu-lv", 10*quantity.SizeGiB, "ext4", "/")
	c.Assert(err, IsNil)
	c.Check(lv.VolumeSize(), Equals, 10*quantity.SizeGiB)
}

func (s *modelSuite) TestZPoolAndDataset(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	gap := geometry.Gaps(wdisk)[0]
	part, err := m.CreatePartition(wdisk, gap, storage.PartitionSpec{})
	c.Assert(err, IsNil)

	pool := m.CreateZPool(part, "bpool", "/boot", true, "off", "", nil)
	ds := pool.CreateZFS("BOOT/ubuntu_"+storage.GenZsysUUID(), "noauto", "/boot")
	c.Check(ds.Pool, Equals, pool)
}

func (s *modelSuite) TestLoadOrGenerateRecoveryKeysIsLazy(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	gap := geometry.Gaps(wdisk)[0]
	part, err := m.CreatePartition(wdisk, gap, storage.PartitionSpec{})
	c.Assert(err, IsNil)

	vg, err := m.CreateVolumeGroup("ubuntu-vg", []storage.Volume{part}, nil, true)
	c.Assert(err, IsNil)
	c.Check(vg.RecoveryKey.HasKey(), Equals, false)

	calls := 0
	m.LoadOrGenerateRecoveryKeys(func() string { calls++; return "generated-key" })
	c.Check(vg.RecoveryKey.HasKey(), Equals, true)
	c.Check(calls, Equals, 1)

	m.LoadOrGenerateRecoveryKeys(func() string { calls++; return "other" })
	c.Check(calls, Equals, 1)
}

func (s *modelSuite) TestBitlockeredDisks(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	gap := geometry.Gaps(wdisk)[0]
	_, err := m.CreatePartition(wdisk, gap, storage.PartitionSpec{FSType: "BitLocker"})
	c.Assert(err, IsNil)

	c.Check(m.BitlockeredDisks(), HasLen, 1)
}

func (s *modelSuite) TestTooManyPartitionsOnGPTNeverTriggers(c *C) {
	disk := oneDisk()
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	c.Check(geometry.RemainingPrimaryPartitions(wdisk), Equals, 128)
}
