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

package capability

import (
	"github.com/canonical/guided-storage-planner/quantity"
	"github.com/canonical/guided-storage-planner/storage"
)

// SystemContext is the subset of system/environment facts the filter
// pipeline needs, deliberately narrow so capability inference doesn't
// need to import boot/externalsystem and create a cycle.
type SystemContext struct {
	IsUEFI              bool
	HasThirdPartyDrivers bool
	InstallMinimumSize  quantity.Size
	StorageEncryption   *StorageEncryptionInfo
}

// StorageEncryptionInfo mirrors the relevant half of the external
// system service's StorageEncryption payload - support level and
// safety - without this package needing to depend on externalsystem.
type StorageEncryptionInfo struct {
	Support          string // "DEFECTIVE", "DISABLED", "UNAVAILABLE", "AVAILABLE"
	StorageSafety    string // "ENCRYPTED", "PREFER_ENCRYPTED", "PREFER_UNENCRYPTED"
}

// ClassicInitial is the starting allowed set before any disk-specific
// filter runs, for a non-core-boot system.
func ClassicInitial() CapabilityInfo {
	return New(CapDirect, CapLVM, CapLVMLUKS, CapZFS, CapZFSLUKSKeystore)
}

// CoreBootInitial derives the starting allowed set for a core-boot
// system from the external system service's reported encryption
// support, following the original's four-way branch: a DEFECTIVE TPM
// backend makes the variation entirely invalid (nothing allowed); a
// DISABLED or UNAVAILABLE backend offers only the unencrypted
// capability, with encrypted disallowed for the same reason; otherwise
// the safety policy picks exactly one of encrypted or
// prefer-encrypted/prefer-unencrypted as the single starting
// capability.
func CoreBootInitial(enc StorageEncryptionInfo) CapabilityInfo {
	switch enc.Support {
	case "DEFECTIVE":
		return CapabilityInfo{
			Disallowed: map[GuidedCapability][]GuidedDisallowedCapabilityReason{
				CapCoreBootEncrypted: {ReasonCoreBootEncryptionUnavailable},
			},
		}
	case "DISABLED", "UNAVAILABLE":
		ci := New(CapCoreBootUnencrypted)
		ci.Disallowed = map[GuidedCapability][]GuidedDisallowedCapabilityReason{
			CapCoreBootEncrypted: {ReasonCoreBootEncryptionUnavailable},
		}
		return ci
	default:
		switch enc.StorageSafety {
		case "PREFER_ENCRYPTED":
			return New(CapCoreBootPreferEncrypted)
		case "PREFER_UNENCRYPTED":
			return New(CapCoreBootPreferUnencrypted)
		default:
			return New(CapCoreBootEncrypted)
		}
	}
}

// ForDisk runs the standard filter pipeline against a single candidate
// disk, returning the CapabilityInfo a caller should Combine into the
// running aggregate across every candidate disk.
func ForDisk(disk *storage.Disk, initial CapabilityInfo, ctx SystemContext) CapabilityInfo {
	ci := initial.Copy()

	ci.DisallowAllIf(disk.TotalSize() < ctx.InstallMinimumSize, ReasonTooSmall)
	for _, cap := range append([]GuidedCapability(nil), ci.Allowed...) {
		if !cap.IsCoreBoot() {
			continue
		}
		ci.DisallowIf(!ctx.IsUEFI, cap, ReasonNotUEFI)
		ci.DisallowIf(ctx.HasThirdPartyDrivers, cap, ReasonThirdPartyDrivers)
	}

	return ci
}

// DisallowAllIf calls DisallowAll when pred holds, for every currently
// allowed capability, with reason.
func (ci *CapabilityInfo) DisallowAllIf(pred bool, reason GuidedDisallowedCapabilityReason) {
	if pred {
		ci.DisallowAll(reason)
	}
}
