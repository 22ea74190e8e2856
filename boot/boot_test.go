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

package boot_test

import (
	"testing"

	. "gopkg.in/check.v1"

	"github.com/canonical/guided-storage-planner/boot"
	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/quantity"
	"github.com/canonical/guided-storage-planner/storage"
)

func Test(t *testing.T) { TestingT(t) }

type bootSuite struct{}

var _ = Suite(&bootSuite{})

func gptDisk(id string, size quantity.Size) *storage.Disk {
	return &storage.Disk{
		ID_:     id,
		Size_:   size,
		Schema_: geometry.SchemaGPT,
		Align: geometry.AlignmentData{
			MinStartOffset: quantity.Offset(1 * quantity.SizeMiB),
			PartAlign:      quantity.SizeMiB,
			EndAlignment:   quantity.SizeMiB,
		},
	}
}

func (s *bootSuite) TestNeedsBootloaderPartitionUEFI(c *C) {
	disk := gptDisk("disk-sda", 100*quantity.SizeGiB)
	c.Check(boot.NeedsBootloaderPartition(boot.BootloaderUEFI, disk), Equals, true)

	disk.Parts = append(disk.Parts, &storage.Partition{ID_: "p1", Flag_: storage.FlagESP})
	c.Check(boot.NeedsBootloaderPartition(boot.BootloaderUEFI, disk), Equals, false)
}

func (s *bootSuite) TestCanBeBootDeviceEmptyDiskHasRoom(c *C) {
	disk := gptDisk("disk-sda", 100*quantity.SizeGiB)
	c.Check(boot.CanBeBootDevice(boot.BootloaderUEFI, disk, nil, false), Equals, true)
}

func (s *bootSuite) TestCanBeBootDeviceTooSmallNoResize(c *C) {
	disk := gptDisk("disk-sda", 100*quantity.SizeMiB)
	disk.Parts = append(disk.Parts, &storage.Partition{
		ID_: "p1", Offset_: quantity.Offset(1 * quantity.SizeMiB), Size_: 98 * quantity.SizeMiB, Number_: 1,
	})
	c.Check(boot.CanBeBootDevice(boot.BootloaderUEFI, disk, nil, false), Equals, false)
}

func (s *bootSuite) TestMutateCreatesESPInLargestGap(c *C) {
	disk := gptDisk("disk-sda", 100*quantity.SizeGiB)
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")

	p, err := boot.Mutate(m, boot.BootloaderUEFI, wdisk, nil)
	c.Assert(err, IsNil)
	c.Check(p.Flag_, Equals, storage.FlagESP)
	c.Check(p.Size_, Equals, boot.ESPSize)
}

func (s *bootSuite) TestMutateReusesExistingESP(c *C) {
	disk := gptDisk("disk-sda", 100*quantity.SizeGiB)
	disk.Parts = append(disk.Parts, &storage.Partition{
		ID_: "p1", Offset_: quantity.Offset(1 * quantity.SizeMiB), Size_: boot.ESPSize, Number_: 1, Flag_: storage.FlagESP,
	})
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	existing := wdisk.Parts[0]

	p, err := boot.Mutate(m, boot.BootloaderUEFI, wdisk, nil)
	c.Assert(err, IsNil)
	c.Check(p.ID_, Equals, existing.ID_)
}

func (s *bootSuite) TestMutateShrinksResizePartitionWhenNoGap(c *C) {
	disk := gptDisk("disk-sda", 1*quantity.SizeGiB+1*quantity.SizeMiB)
	full := &storage.Partition{
		ID_: "p1", Offset_: quantity.Offset(1 * quantity.SizeMiB), Size_: 1 * quantity.SizeGiB, Number_: 1,
		EstimatedMinSize: 500 * quantity.SizeMiB,
	}
	disk.Parts = append(disk.Parts, full)
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	resize := wdisk.Parts[0]

	p, err := boot.Mutate(m, boot.BootloaderUEFI, wdisk, resize)
	c.Assert(err, IsNil)
	c.Check(p.Flag_, Equals, storage.FlagESP)
	c.Check(resize.Resize, Equals, true)
	c.Check(resize.Size_ < 1*quantity.SizeGiB, Equals, true)
}
