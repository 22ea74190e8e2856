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

package guided

import (
	"sort"

	"github.com/canonical/guided-storage-planner/boot"
	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/quantity"
	"github.com/canonical/guided-storage-planner/sizes"
	"github.com/canonical/guided-storage-planner/storage"
)

// hasEnoughRoomForPartitions reports whether disk has enough remaining
// primary partition slots for the new partitions a guided install into
// gap (or a resize of resized) would need: one for the install itself,
// unless it lands in an extended/logical area, plus however many the
// Boot Planner would add for bl. Mirrors
// _guided_has_enough_room_for_partitions; a possible reset partition
// isn't accounted for since it isn't known to be wanted yet.
func hasEnoughRoomForPartitions(disk *storage.Disk, bl boot.Bootloader, gap *geometry.Gap, resized *storage.Partition) bool {
	newPrimaryParts := 0
	intoLogical := false
	if resized != nil {
		intoLogical = resized.IsLogical()
	} else if gap != nil {
		intoLogical = gap.InExtended
	}
	if !intoLogical {
		newPrimaryParts++
	}
	if bl != "" && boot.NeedsBootloaderPartition(bl, disk) {
		newPrimaryParts++
	}
	return newPrimaryParts <= geometry.RemainingPrimaryPartitions(disk)
}

// AvailableUseGapScenarios lists every gap on disk big enough to hold
// an install, as UseGap targets, in descending size order. Gaps that
// would leave no room for the primary partitions a bl bootloader still
// needs to add are skipped, the same as use_gap_has_enough_room_for_partitions.
func AvailableUseGapScenarios(disk *storage.Disk, installMin quantity.Size, bl boot.Bootloader) []UseGap {
	var out []UseGap
	for _, g := range geometry.Gaps(disk) {
		g := g
		if g.Size < installMin {
			continue
		}
		if !hasEnoughRoomForPartitions(disk, bl, &g, nil) {
			continue
		}
		out = append(out, UseGap{Disk: disk, Gap: g})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gap.Size > out[j].Gap.Size })
	return out
}

// AvailableTargetResizeScenarios lists every existing, resizable
// partition on disk that can be shrunk to leave room for installMin
// bytes of new install, in descending order of the space it would free
// up. A candidate is dropped when bl can't be placed on disk once that
// partition is resized (can_be_boot_device), or when there isn't
// enough room left for the primary partitions the resize and the
// bootloader would together need.
func AvailableTargetResizeScenarios(disk *storage.Disk, installMin quantity.Size, weightUsed float64, bl boot.Bootloader) []Resize {
	var out []Resize
	for _, p := range disk.Parts {
		if p.InUse || p.Preserve {
			continue
		}
		newSize, ok := sizes.CalculateGuidedResize(p.EstimatedMinSize, p.Size_, weightUsed, installMin)
		if !ok {
			continue
		}
		if bl != "" && !boot.CanBeBootDevice(bl, disk, p, false) {
			continue
		}
		if !hasEnoughRoomForPartitions(disk, bl, nil, p) {
			continue
		}
		out = append(out, Resize{Disk: disk, Partition: p, NewSize: newSize})
	}
	sort.Slice(out, func(i, j int) bool {
		freedI := out[i].Partition.Size_ - out[i].NewSize
		freedJ := out[j].Partition.Size_ - out[j].NewSize
		return freedI > freedJ
	})
	return out
}

// PotentialBootDisks lists the disks a core-boot or classic guided
// install could target: real disks only, never a disk that is itself
// constructed from a raid array's member set (potential_boot_disks
// excludes raid members to avoid offering a disk twice, once directly
// and once via its raid).
func PotentialBootDisks(disks []*storage.Disk, withBootLoader, withFull bool) []*storage.Disk {
	var out []*storage.Disk
	for _, d := range disks {
		if d.ConstructedFrom != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}
