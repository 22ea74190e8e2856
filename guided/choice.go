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
	"github.com/canonical/guided-storage-planner/boot"
	"github.com/canonical/guided-storage-planner/capability"
	"github.com/canonical/guided-storage-planner/coreboot"
	"github.com/canonical/guided-storage-planner/quantity"
)

// SizingPolicy names how much of a volume group's space the LVM guided
// layout gives to the root logical volume.
type SizingPolicy string

const (
	// SizingPolicyScaled gives the root LV the VG size aligned down to the
	// LVM chunk size, per sizes.ScaledRootfsSize; no other space is held back.
	SizingPolicyScaled SizingPolicy = "scaled"
	// SizingPolicyAll gives the root LV the entire VG.
	SizingPolicyAll SizingPolicy = "all"
)

// Choice is the fully-specified request the client sends back once the
// user has picked a target and a capability: which layout engine to
// run (via Capability), any LUKS passphrase, and whether a recovery key
// should be generated alongside it.
//
// Bootloader is left zero-valued ("") for callers that manage the boot
// partition themselves (e.g. core-boot, which goes through the
// coreboot package instead); a non-empty value asks Guided to invoke
// the Boot Planner's mutation on the target disk before laying out the
// rest of the chosen capability's partitions.
//
// ResetPartitionSize, when non-zero, asks Guided to carve a preserved
// FAT32 "reset" partition from the front of the target gap before
// dispatching to a capability's layout engine, the byte count already
// resolved by the caller (ResolveResetPartitionSize, for autoinstall).
// ResetPartitionOnly stops Guided right after that carve, dropping any
// mounts made so far and skipping the capability dispatch entirely.
//
// CoreBootStructures is only read for a core-boot capability: the
// gadget's resolved volume layout to hand to the Core-Boot Reconciler.
type Choice struct {
	Target             Target
	Capability         capability.GuidedCapability
	Password           *string
	RecoveryKey        bool
	VGName             string
	Bootloader         boot.Bootloader
	SizingPolicy       SizingPolicy
	ResetPartitionSize quantity.Size
	ResetPartitionOnly bool
	MinInstallSize     quantity.Size
	CoreBootStructures []coreboot.Structure
}

// NeedsPassword reports whether Capability requires a non-empty
// Password to proceed.
func (c Choice) NeedsPassword() bool {
	switch c.Capability {
	case capability.CapLVMLUKS, capability.CapZFSLUKSKeystore, capability.CapCoreBootEncrypted, capability.CapCoreBootPreferEncrypted:
		return true
	}
	return false
}
