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

package autoinstall

import (
	"fmt"

	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/quantity"
	"github.com/canonical/guided-storage-planner/storage"
)

// ConfigAction is one entry of the low-level "storage: config:" action
// list - curtin's own action grammar, for users who skip the guided
// planner entirely and hand-author the exact partition table they
// want. This is convert_autoinstall_config's "config" branch; the
// "layout" branch goes through Layout/Validate and the guided planner
// instead.
type ConfigAction struct {
	Type    string // "partition", "format", "mount", "lvm_volgroup", "lvm_partition"
	ID      string
	Device  string
	Number  int
	Offset  *quantity.Offset
	Size    *quantity.Size
	Flag    string
	Volume  string
	FSType  string
	Label   string
	Path    string
	Devices []string
	Name    string
}

// ApplyConfig replays a "storage: config:" action list against m,
// resolving each action's Device/Volume reference against the ids
// produced by earlier actions in the same list, and returns the
// id->result mapping (so volumes created by the list can be located for
// wiring into the rest of the installer, e.g. a root filesystem).
func ApplyConfig(m *storage.Model, actions []ConfigAction) (map[string]storage.Action, error) {
	byID := map[string]storage.Action{}

	for _, a := range actions {
		switch a.Type {
		case "partition":
			disk, ok := byID[a.Device].(*storage.Disk)
			if !ok {
				d, err := m.One(a.Device)
				if err != nil {
					return nil, fmt.Errorf("%w: partition action references unknown device %q", ErrInvalidAction, a.Device)
				}
				disk = d
			}
			offset := geometry.Gaps(disk)[0].Offset
			if a.Offset != nil {
				offset = *a.Offset
			}
			if a.Size == nil {
				return nil, fmt.Errorf("%w: partition action %q missing size", ErrInvalidAction, a.ID)
			}
			part, err := m.AddPartition(disk, offset, *a.Size, storage.Flag(a.Flag), true)
			if err != nil {
				return nil, err
			}
			byID[a.ID] = part

		case "format":
			vol, ok := byID[a.Volume].(storage.Volume)
			if !ok {
				return nil, fmt.Errorf("%w: format action references unknown volume %q", ErrInvalidAction, a.Volume)
			}
			fs, err := m.AddFilesystem(vol, a.FSType, a.Label)
			if err != nil {
				return nil, err
			}
			byID[a.ID] = fs

		case "mount":
			fs, ok := byID[a.Device].(*storage.Filesystem)
			if !ok {
				return nil, fmt.Errorf("%w: mount action references unknown format %q", ErrInvalidAction, a.Device)
			}
			mnt, err := m.AddMount(fs, a.Path)
			if err != nil {
				return nil, err
			}
			byID[a.ID] = mnt

		case "lvm_volgroup":
			var devices []storage.Volume
			for _, devID := range a.Devices {
				vol, ok := byID[devID].(storage.Volume)
				if !ok {
					return nil, fmt.Errorf("%w: lvm_volgroup action references unknown device %q", ErrInvalidAction, devID)
				}
				devices = append(devices, vol)
			}
			vg, err := m.CreateVolumeGroup(a.Name, devices, nil, false)
			if err != nil {
				return nil, err
			}
			byID[a.ID] = vg

		case "lvm_partition":
			vg, ok := byID[a.Volume].(*storage.VolumeGroup)
			if !ok {
				return nil, fmt.Errorf("%w: lvm_partition action references unknown volume group %q", ErrInvalidAction, a.Volume)
			}
			size := vg.VolumeSize()
			if a.Size != nil {
				size = *a.Size
			}
			lv, err := m.CreateLogicalVolume(vg, a.Name, size, "", "")
			if err != nil {
				return nil, err
			}
			byID[a.ID] = lv

		default:
			return nil, fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, a.Type)
		}
	}
	return byID, nil
}
