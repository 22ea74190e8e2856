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

// Package autoinstall validates the "storage: layout:" section of an
// autoinstall config before any of it reaches the guided planner -
// every one of its checks is a pure, side-effect-free gate, matching
// the original controller's practice of validating the whole section
// up front rather than discovering an invalid combination mid-mutation.
package autoinstall

import (
	"fmt"

	"github.com/canonical/guided-storage-planner/quantity"
)

// ResetPartitionValue is the autoinstall "reset-partition" key, which
// the original config schema accepts in three shapes: a bare boolean
// (reset a partition with a dry-run-sized placeholder), an integer (a
// byte count), or a human size string ("4G"). Exactly one of the three
// fields is populated, reflecting the three-way union the YAML loader
// resolves into before this package ever sees it.
type ResetPartitionValue struct {
	Bool       *bool
	SizeBytes  *quantity.Size
	SizeString *string
}

// Layout is the parsed "storage: layout:" directive.
type Layout struct {
	Mode           string // "direct", "lvm", "zfs", "hybrid", "dd"
	Password       *string
	RecoveryKey    bool
	ReformatDisk   *bool
	ResetPartition *ResetPartitionValue
	SizingPolicy   string
}

// Validate enforces the cross-field rules a layout must satisfy before
// it can be handed to the guided planner:
//
//   - "hybrid" mode may not also specify a mode-incompatible
//     reformat_disk: false, since a hybrid layout only makes sense when
//     starting from a clean disk.
//   - "dd" mode implies reformat_disk is true; an explicit false is
//     rejected rather than silently overridden.
//   - recovery-key: true without a password is rejected outright -
//     there is nothing to derive a recovery key's wrapping key from.
func (l Layout) Validate() error {
	if l.Mode == "hybrid" && l.ReformatDisk != nil && !*l.ReformatDisk {
		return fmt.Errorf("%w: hybrid layout requires reformatting the disk", ErrInvalidLayout)
	}
	if l.Mode == "dd" && l.ReformatDisk != nil && !*l.ReformatDisk {
		return fmt.Errorf("%w: dd layout always reformats the target disk", ErrInvalidLayout)
	}
	if l.RecoveryKey && (l.Password == nil || *l.Password == "") {
		return fmt.Errorf("%w: recovery-key requires a password", ErrInvalidLayout)
	}
	if l.ResetPartition != nil {
		if err := l.ResetPartition.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r ResetPartitionValue) validate() error {
	set := 0
	if r.Bool != nil {
		set++
	}
	if r.SizeBytes != nil {
		set++
	}
	if r.SizeString != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%w: reset-partition must be exactly one of bool, size, or size string", ErrInvalidLayout)
	}
	if r.SizeString != nil {
		if _, err := quantity.ParseSize(*r.SizeString); err != nil {
			return fmt.Errorf("%w: reset-partition: %v", ErrInvalidLayout, err)
		}
	}
	return nil
}
