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

// Package sizes holds the guided planner's sizing policy: how big a
// bootfs partition should be, how an LV gets scaled down from its
// backing VG, how a resize scenario's new sizes are picked, and what
// "enough room" means for a given source image - kept apart from
// storage, which only knows how to place bytes, not why a given byte
// count was chosen.
package sizes

import (
	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/quantity"
)

// Default sizing constants, matching the original controller's
// DEFAULT_LV_SIZE_POLICY / BIOS_GRUB_SIZE_BYTES / etc.
const (
	BootfsSize         = 2 * quantity.SizeGiB
	LVChunkSize        = 64 * quantity.SizeMiB
	MinGapSize         = 1 * quantity.SizeMiB
	SwapfileSizeMax    = 4 * quantity.SizeGiB
	InstallMinFudgeNum = 110 // percent
	InstallMinFudgeAdd = 128 * quantity.SizeMiB
)

// GetBootfsSize returns the fixed size given to a separate /boot
// filesystem when the layout calls for one (LVM and ZFS guided layouts
// both carve one out, so LUKS never has to unlock before grub can find
// its kernel).
func GetBootfsSize() quantity.Size { return BootfsSize }

// ScaledRootfsSize scales an available VG size down to the size actually
// given to the root LV: the whole VG, aligned down to the LVM chunk
// size, leaving the rest of the policy (snapshots, swap) to the caller.
func ScaledRootfsSize(vgSize quantity.Size) quantity.Size {
	return geometry.AlignDownSize(vgSize, LVChunkSize)
}

// CalculateGuidedResize picks the new size for a partition being
// shrunk to make room for a guided install alongside it: weight_used is
// the partition's estimated used fraction (0..1) and install_min is the
// minimum space the new install itself needs. The resized partition
// keeps max(used size with 10% headroom, partition minimum) and never
// grows.
func CalculateGuidedResize(partMin, partSize quantity.Size, weightUsed float64, installMin quantity.Size) (newPartSize quantity.Size, ok bool) {
	used := quantity.Size(float64(partSize) * weightUsed)
	headroom := quantity.Size(float64(used) * 0.10)
	wanted := used + headroom
	if wanted < partMin {
		wanted = partMin
	}
	if wanted >= partSize {
		return 0, false
	}
	available := partSize - wanted
	if available < installMin {
		return 0, false
	}
	return wanted, true
}

// SuggestedSwapsize picks how much of a gap's remaining space to give
// to swap, mirroring curtin's swap.suggested_swapsize in the one
// respect this planner can actually reason about: never handing swap
// more than SwapfileSizeMax of the space that's left over once the
// rest of the install's minimum size is accounted for. curtin's own
// policy additionally scales against installed RAM, which isn't
// information this planner has; avail is expected to already be
// gap_rest.size minus the variation's minimum install size, and may be
// negative when nothing is left, in which case no swap is created.
func SuggestedSwapsize(avail quantity.Size) quantity.Size {
	if int64(avail) <= 0 {
		return 0
	}
	if avail > SwapfileSizeMax {
		return SwapfileSizeMax
	}
	return avail
}

// CalculateSuggestedInstallMin derives the minimum disk size a guided
// install needs from the size of the install source, following
// calculate_suggested_install_min: the source's own minimum size, plus
// a 10% fudge factor for filesystem overhead, plus a fixed 128 MiB
// safety margin, aligned up to megabyte granularity.
func CalculateSuggestedInstallMin(sourceMinSize quantity.Size) quantity.Size {
	scaled := quantity.Size(uint64(sourceMinSize) * InstallMinFudgeNum / 100)
	return geometry.AlignUpSize(scaled+InstallMinFudgeAdd, quantity.SizeMiB)
}
