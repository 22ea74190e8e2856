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

package storage

import "github.com/canonical/guided-storage-planner/quantity"

// LVMChunkSize is the granularity LV sizes are aligned down to, per
// §4.7 "LV size is scaled_rootfs_size(vg.size) (aligned down to 64 MiB
// chunk)".
const LVMChunkSize = 64 * quantity.SizeMiB

// VolumeGroup is an LVM volume group built on one or more PV-backed
// Volumes, optionally LUKS-encrypted.
type VolumeGroup struct {
	ID_         string
	Name        string
	Devices     []Volume
	Passphrase  *string
	RecoveryKey *RecoveryKeyHandler
}

func (vg *VolumeGroup) ActionID() string  { return vg.ID_ }
func (vg *VolumeGroup) ActionKind() string { return "lvm_volgroup" }

// VolumeSize is the sum of the backing devices' sizes; no LVM metadata
// overhead is subtracted.
func (vg *VolumeGroup) VolumeSize() quantity.Size {
	var total quantity.Size
	for _, d := range vg.Devices {
		total += d.VolumeSize()
	}
	return total
}

// LogicalVolume is an LV inside a VolumeGroup.
type LogicalVolume struct {
	ID_  string
	VG   *VolumeGroup
	Name string
	Size_ quantity.Size
}

func (lv *LogicalVolume) ActionID() string         { return lv.ID_ }
func (lv *LogicalVolume) ActionKind() string        { return "lvm_partition" }
func (lv *LogicalVolume) VolumeSize() quantity.Size { return lv.Size_ }
