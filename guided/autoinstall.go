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
	"context"
	"fmt"

	"github.com/canonical/guided-storage-planner/boot"
	"github.com/canonical/guided-storage-planner/capability"
	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/internal/executil"
	"github.com/canonical/guided-storage-planner/quantity"
	"github.com/canonical/guided-storage-planner/storage"
)

// LayoutMode names an autoinstall "storage: layout:" mode, mirroring
// the original's layout-mode enum (direct/lvm/zfs/hybrid).
type LayoutMode string

const (
	LayoutDirect LayoutMode = "direct"
	LayoutLVM    LayoutMode = "lvm"
	LayoutZFS    LayoutMode = "zfs"
	LayoutHybrid LayoutMode = "hybrid"
)

// ResetPartitionSpec describes how large a preserved "reset" partition
// on the target disk should be treated, in one of the three forms the
// original's run_autoinstall_guided accepts: an explicit size, an
// instruction to measure an existing mounted image with `du -sb`, or
// (when neither applies, e.g. in a dry run) a fixed placeholder.
type ResetPartitionSpec struct {
	ExplicitSize  *quantity.Size
	MeasurePath   string
	DryRunDefault quantity.Size
}

// ResolveResetPartitionSize returns the byte size to use for a
// preserved reset partition, in the priority order the original
// applies: explicit size first, then `du -sb` on MeasurePath, and only
// if neither is available the dry-run placeholder - never returning an
// unaligned size, since it's always rounded up to a megabyte.
func ResolveResetPartitionSize(ctx context.Context, r executil.Runner, spec ResetPartitionSpec) (quantity.Size, error) {
	if spec.ExplicitSize != nil {
		return geometry.AlignUpSize(*spec.ExplicitSize, quantity.SizeMiB), nil
	}
	if spec.MeasurePath != "" {
		n, err := executil.DiskUsageBytes(ctx, r, spec.MeasurePath)
		if err != nil {
			return 0, err
		}
		return geometry.AlignUpSize(quantity.Size(n), quantity.SizeMiB), nil
	}
	return geometry.AlignUpSize(spec.DryRunDefault, quantity.SizeMiB), nil
}

// AutoinstallGuidedConfig is the parsed "storage: layout:" autoinstall
// directive.
type AutoinstallGuidedConfig struct {
	Mode               LayoutMode
	Password           *string
	RecoveryKey        bool
	SizingPolicy       string
	ResetPartition     *ResetPartitionSpec
	ResetPartitionOnly bool
	Bootloader         boot.Bootloader
}

// RunAutoinstallGuided realizes an autoinstall guided layout directive
// against disk, dispatching on Mode the way run_autoinstall_guided
// does for direct, lvm and zfs; any other mode, hybrid and dd included,
// is rejected with ErrUnsupportedLayoutMode. Reset partition sizing
// needs ctx/r to measure an existing
// image, so it's resolved here and handed down to Guided as an
// already-resolved byte count.
func (p *Planner) RunAutoinstallGuided(ctx context.Context, r executil.Runner, disk *storage.Disk, cfg AutoinstallGuidedConfig) (storage.Volume, error) {
	var resetSize quantity.Size
	if cfg.ResetPartition != nil {
		var err error
		resetSize, err = ResolveResetPartitionSize(ctx, r, *cfg.ResetPartition)
		if err != nil {
			return nil, err
		}
	}

	choice := Choice{
		Target:             Reformat{Disk: disk},
		Password:           cfg.Password,
		RecoveryKey:        cfg.RecoveryKey,
		Bootloader:         cfg.Bootloader,
		SizingPolicy:       SizingPolicy(cfg.SizingPolicy),
		ResetPartitionSize: resetSize,
		ResetPartitionOnly: cfg.ResetPartitionOnly,
	}
	switch cfg.Mode {
	case LayoutDirect, "":
		choice.Capability = capability.CapDirect
	case LayoutLVM:
		if cfg.Password != nil {
			choice.Capability = capability.CapLVMLUKS
		} else {
			choice.Capability = capability.CapLVM
		}
	case LayoutZFS:
		if cfg.Password != nil {
			choice.Capability = capability.CapZFSLUKSKeystore
		} else {
			choice.Capability = capability.CapZFS
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLayoutMode, cfg.Mode)
	}

	return p.Guided(choice)
}

// ClassicCapabilities runs the standard non-core-boot filter pipeline
// across every candidate disk and combines the results, the equivalent
// of get_classic_capabilities.
func ClassicCapabilities(disks []*storage.Disk, ctx capability.SystemContext) capability.CapabilityInfo {
	result := capability.CapabilityInfo{}
	for _, d := range disks {
		result = result.Combine(capability.ForDisk(d, capability.ClassicInitial(), ctx))
	}
	return result
}
