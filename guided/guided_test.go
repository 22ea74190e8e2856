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

package guided_test

import (
	"context"
	"testing"

	. "gopkg.in/check.v1"

	"github.com/canonical/guided-storage-planner/boot"
	"github.com/canonical/guided-storage-planner/capability"
	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/guided"
	"github.com/canonical/guided-storage-planner/quantity"
	"github.com/canonical/guided-storage-planner/sizes"
	"github.com/canonical/guided-storage-planner/storage"
)

func Test(t *testing.T) { TestingT(t) }

type guidedSuite struct{}

var _ = Suite(&guidedSuite{})

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

func (s *guidedSuite) TestGuidedDirectReformat(c *C) {
	disk := gptDisk("disk-sda", 50*quantity.SizeGiB)
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	p := guided.New(m)

	vol, err := p.Guided(guided.Choice{
		Target:     guided.Reformat{Disk: wdisk},
		Capability: capability.CapDirect,
	})
	c.Assert(err, IsNil)
	c.Check(vol.VolumeSize() > 0, Equals, true)
	c.Check(wdisk.Parts, HasLen, 1)
}

func (s *guidedSuite) TestGuidedRequiresPasswordForLUKS(c *C) {
	disk := gptDisk("disk-sda", 50*quantity.SizeGiB)
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	p := guided.New(m)

	_, err := p.Guided(guided.Choice{
		Target:     guided.Reformat{Disk: wdisk},
		Capability: capability.CapLVMLUKS,
	})
	c.Check(err, Equals, guided.ErrPasswordRequired)
}

func (s *guidedSuite) TestGuidedLVMCreatesBootAndRootLV(c *C) {
	disk := gptDisk("disk-sda", 50*quantity.SizeGiB)
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	p := guided.New(m)

	vol, err := p.Guided(guided.Choice{
		Target:     guided.Reformat{Disk: wdisk},
		Capability: capability.CapLVM,
	})
	c.Assert(err, IsNil)
	_, ok := vol.(*storage.LogicalVolume)
	c.Check(ok, Equals, true)
	c.Check(wdisk.Parts, HasLen, 2)
}

// TestGuidedLVMWithBootloaderCarvesESP covers end-to-end scenario S1:
// reformat + LVM on a 100 GiB empty GPT disk, UEFI bootloader, no
// password. Expect three partitions: the ESP the Boot Planner carves,
// /boot, and the LVM PV.
func (s *guidedSuite) TestGuidedLVMWithBootloaderCarvesESP(c *C) {
	disk := gptDisk("disk-sda", 100*quantity.SizeGiB)
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	p := guided.New(m)

	vol, err := p.Guided(guided.Choice{
		Target:     guided.Reformat{Disk: wdisk},
		Capability: capability.CapLVM,
		Bootloader: boot.BootloaderUEFI,
	})
	c.Assert(err, IsNil)
	_, ok := vol.(*storage.LogicalVolume)
	c.Check(ok, Equals, true)
	c.Assert(wdisk.Parts, HasLen, 3)
	c.Check(wdisk.Parts[0].Flag_, Equals, storage.FlagESP)
	c.Check(wdisk.Parts[0].Size_, Equals, boot.ESPSize)
}

// TestGuidedZFSCreatesTwoPools covers the bare case where the whole
// disk is handed to the install (MinInstallSize left zero): there's
// plenty of room left after bpool and rpool are carved out, so a swap
// partition is suggested too, same as the original's zfs guided layout
// does whenever gap_rest leaves space to spare.
func (s *guidedSuite) TestGuidedZFSCreatesTwoPools(c *C) {
	disk := gptDisk("disk-sda", 50*quantity.SizeGiB)
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	p := guided.New(m)

	_, err := p.Guided(guided.Choice{
		Target:     guided.Reformat{Disk: wdisk},
		Capability: capability.CapZFS,
	})
	c.Assert(err, IsNil)
	c.Assert(wdisk.Parts, HasLen, 3)
	c.Check(wdisk.Parts[1].PartitionName, Equals, "")
	c.Check(wdisk.Parts[1].Size_, Equals, sizes.SwapfileSizeMax)
}

// TestGuidedZFSSkipsSwapWhenNoRoomLeft covers the case where
// MinInstallSize already accounts for the whole remaining gap: there's
// nothing left over for swap, so guidedZFS falls back to the two-pool
// layout.
func (s *guidedSuite) TestGuidedZFSSkipsSwapWhenNoRoomLeft(c *C) {
	disk := gptDisk("disk-sda", 50*quantity.SizeGiB)
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	p := guided.New(m)

	_, err := p.Guided(guided.Choice{
		Target:         guided.Reformat{Disk: wdisk},
		Capability:     capability.CapZFS,
		MinInstallSize: 48 * quantity.SizeGiB,
	})
	c.Assert(err, IsNil)
	c.Check(wdisk.Parts, HasLen, 2)
}

// TestGuidedDirectUseGapWithBootloaderPreservesOtherPartition covers
// end-to-end scenario S2: a 40 GiB NTFS partition at offset 1 MiB on a
// 100 GiB GPT disk, DIRECT capability, UseGap on the remaining ~60 GiB.
// The Boot Planner carves an ESP out of the front of that gap, then /
// lands in what's left; the NTFS partition is untouched.
func (s *guidedSuite) TestGuidedDirectUseGapWithBootloaderPreservesOtherPartition(c *C) {
	disk := gptDisk("disk-sda", 100*quantity.SizeGiB)
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	ntfs, err := m.AddPartition(wdisk, quantity.Offset(1*quantity.SizeMiB), 40*quantity.SizeGiB, storage.FlagNone, true)
	c.Assert(err, IsNil)

	p := guided.New(m)
	gaps := geometry.Gaps(wdisk)
	c.Assert(gaps, HasLen, 1)

	vol, err := p.Guided(guided.Choice{
		Target:     guided.UseGap{Disk: wdisk, Gap: gaps[0]},
		Capability: capability.CapDirect,
		Bootloader: boot.BootloaderUEFI,
	})
	c.Assert(err, IsNil)
	c.Check(vol.VolumeSize() > 0, Equals, true)
	c.Assert(wdisk.Parts, HasLen, 3)

	c.Check(ntfs.InUse, Equals, false)
	found := false
	for _, p := range wdisk.Parts {
		if p.ID_ == ntfs.ID_ {
			found = true
		}
	}
	c.Check(found, Equals, true)
}

func (s *guidedSuite) TestAvailableUseGapScenariosFiltersBySize(c *C) {
	disk := gptDisk("disk-sda", 50*quantity.SizeGiB)
	scenarios := guided.AvailableUseGapScenarios(disk, 10*quantity.SizeGiB, boot.BootloaderUEFI)
	c.Assert(scenarios, HasLen, 1)

	scenarios = guided.AvailableUseGapScenarios(disk, 100*quantity.SizeGiB, boot.BootloaderUEFI)
	c.Check(scenarios, HasLen, 0)
}

func (s *guidedSuite) TestRunAutoinstallGuidedDirectWithResetPartition(c *C) {
	disk := gptDisk("disk-sda", 50*quantity.SizeGiB)
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	p := guided.New(m)

	explicit := 1 * quantity.SizeGiB
	_, err := p.RunAutoinstallGuided(context.Background(), nil, wdisk, guided.AutoinstallGuidedConfig{
		Mode:           guided.LayoutDirect,
		ResetPartition: &guided.ResetPartitionSpec{ExplicitSize: &explicit},
	})
	c.Assert(err, IsNil)
	c.Check(wdisk.Parts, HasLen, 2)
}

func (s *guidedSuite) TestRunAutoinstallGuidedResetPartitionOnly(c *C) {
	disk := gptDisk("disk-sda", 50*quantity.SizeGiB)
	m := storage.NewModel([]*storage.Disk{disk})
	wdisk, _ := m.One("disk-sda")
	p := guided.New(m)

	explicit := 1 * quantity.SizeGiB
	vol, err := p.RunAutoinstallGuided(context.Background(), nil, wdisk, guided.AutoinstallGuidedConfig{
		ResetPartitionOnly: true,
		ResetPartition:     &guided.ResetPartitionSpec{ExplicitSize: &explicit},
	})
	c.Assert(err, IsNil)
	c.Check(vol, IsNil)
	c.Check(wdisk.Parts, HasLen, 1)
}
