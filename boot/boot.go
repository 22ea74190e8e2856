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

// Package boot is the Boot Planner (C3): it decides whether and how a
// disk needs to grow a bootloader partition (ESP or BIOS-GRUB) before
// the rest of a guided layout can be carved out of it.
package boot

import (
	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/quantity"
	"github.com/canonical/guided-storage-planner/storage"
)

// Bootloader identifies the firmware/bootloader combination the target
// machine boots with.
type Bootloader string

const (
	BootloaderNone   Bootloader = "none"
	BootloaderBIOS   Bootloader = "bios"
	BootloaderUEFI   Bootloader = "uefi"
	BootloaderPrepIA Bootloader = "prep"
)

// ESPSize and BIOSGrubSize are the fixed sizes the planner carves out
// for a bootloader partition it creates itself.
const (
	ESPSize      = 538 * quantity.SizeMiB
	BIOSGrubSize = 1 * quantity.SizeMiB
)

// NeedsBootloaderPartition reports whether disk already carries a
// partition suitable as this bootloader's boot partition.
func NeedsBootloaderPartition(bl Bootloader, disk *storage.Disk) bool {
	switch bl {
	case BootloaderUEFI:
		for _, p := range disk.Parts {
			if p.Flag_ == storage.FlagESP {
				return false
			}
		}
		return true
	case BootloaderBIOS:
		for _, p := range disk.Parts {
			if p.IsBIOSGrub() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CanBeBootDevice reports whether disk is a disk the planner is able to
// place the bootloader on, optionally considering a partition about to
// be resized (nil when not resizing) and whether reformatting the disk
// from scratch is on the table.
func CanBeBootDevice(bl Bootloader, disk *storage.Disk, resizePartition *storage.Partition, withReformatting bool) bool {
	if disk.Schema() != geometry.SchemaGPT && disk.Schema() != geometry.SchemaMSDOS {
		return false
	}
	if withReformatting {
		return geometry.RemainingPrimaryPartitions(disk) > 0
	}
	if !NeedsBootloaderPartition(bl, disk) {
		return true
	}
	align := disk.Alignment()
	needed := bootPartitionSize(bl)
	for _, g := range geometry.Gaps(disk) {
		if g.Size >= needed {
			return true
		}
	}
	if resizePartition != nil {
		shrinkable := resizePartition.Size_ - resizePartition.EstimatedMinSize
		if shrinkable >= geometry.AlignUpSize(needed, align.PartAlign) {
			return true
		}
	}
	return false
}

func bootPartitionSize(bl Bootloader) quantity.Size {
	if bl == BootloaderBIOS {
		return BIOSGrubSize
	}
	return ESPSize
}

// Mutate carves out (or reuses) a bootloader partition on disk, in
// place, using the model m to record the mutation. It follows the tie
// break policy from §4.3: reuse an existing ESP/BIOS-GRUB partition if
// present; otherwise use the largest gap; otherwise shrink
// resizePartition (which must be non-nil and shrinkable, as verified by
// CanBeBootDevice) to make room at the front of its freed tail.
func Mutate(m *storage.Model, bl Bootloader, disk *storage.Disk, resizePartition *storage.Partition) (*storage.Partition, error) {
	if !NeedsBootloaderPartition(bl, disk) {
		for _, p := range disk.Parts {
			if (bl == BootloaderUEFI && p.Flag_ == storage.FlagESP) || (bl == BootloaderBIOS && p.IsBIOSGrub()) {
				return p, nil
			}
		}
	}

	needed := bootPartitionSize(bl)
	flag := storage.FlagESP
	if bl == BootloaderBIOS {
		flag = storage.FlagBIOSGrub
	}

	if gap := largestGapAtLeast(disk, needed); gap != nil {
		lead, _ := gap.Split(needed)
		return m.AddPartition(disk, lead.Offset, lead.Size, flag, true)
	}

	if resizePartition != nil {
		align := disk.Alignment()
		shrinkTo := resizePartition.Size_ - geometry.AlignUpSize(needed, align.PartAlign)
		resizePartition.Size_ = shrinkTo
		resizePartition.Resize = true
		newOffset := resizePartition.Offset_ + quantity.Offset(shrinkTo)
		return m.AddPartition(disk, newOffset, needed, flag, true)
	}

	return nil, ErrNoRoomForBootPartition
}

func largestGapAtLeast(disk *storage.Disk, min quantity.Size) *geometry.Gap {
	var best *geometry.Gap
	for _, g := range geometry.Gaps(disk) {
		g := g
		if g.Size < min {
			continue
		}
		if best == nil || g.Size > best.Size {
			best = &g
		}
	}
	return best
}
