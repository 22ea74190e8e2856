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

// Package storage is the in-memory Device Model (C2): disks, partitions,
// LVM volume groups/volumes, ZFS pools/datasets, filesystems, mounts,
// raids and arbitrary devices, plus the ordered action log every
// mutator appends to.
package storage

import "github.com/canonical/guided-storage-planner/quantity"

// Flag is a partition role flag.
type Flag string

const (
	FlagNone       Flag = ""
	FlagBoot       Flag = "boot"
	FlagBIOSGrub   Flag = "bios_grub"
	FlagESP        Flag = "esp"
	FlagMSFTRes    Flag = "msftres"
	FlagExtended   Flag = "extended"
	FlagLogical    Flag = "logical"
)

// GPT partition type GUIDs, following the constants go-diskfs's gpt
// package assigns the same roles (ESP, BIOS boot, Microsoft reserved,
// Linux filesystem data) - reused here as plain string constants so the
// planner doesn't need to link the full partitioning library just to
// name four well-known GUIDs.
const (
	TypeGUIDESP           = "C12A7328-F81F-11D2-BA4B-00A0C93EC93B"
	TypeGUIDBIOSBoot      = "21686148-6449-6E6F-744E-656564454649"
	TypeGUIDMicrosoftRes  = "E3C9E316-0B5C-4DB8-817D-F92DF00215AE"
	TypeGUIDLinuxFS       = "0FC63DAF-8483-4772-8E79-3D69D8477DE4"
)

// FlagForTypeGUID derives the partition flag curtin would assign for a
// given GPT type GUID, mirroring ptable_part_type_to_flag from the
// original controller (used when reconciling a core-boot volume
// layout's structures, which carry type GUIDs but not flags).
func FlagForTypeGUID(guid string) Flag {
	switch guid {
	case TypeGUIDESP:
		return FlagESP
	case TypeGUIDBIOSBoot:
		return FlagBIOSGrub
	case TypeGUIDMicrosoftRes:
		return FlagMSFTRes
	default:
		return FlagNone
	}
}

// Volume is anything a Filesystem, LogicalVolume or ZPool can sit on
// top of: a Partition, a LogicalVolume, a Raid, or an ArbitraryDevice.
type Volume interface {
	Action
	VolumeSize() quantity.Size
}

// Action is an entry in the model's action log. Every mutator appends
// one. The model is not rebuilt from the log: Reset and LoadProbeData
// reload the disks from a stored snapshot and start a fresh log.
type Action interface {
	ActionID() string
	ActionKind() string
}

// RecoveryKeyHandler describes where a generated LUKS/ZFS recovery key
// should be persisted. The key itself is generated lazily, only once
// requested.
type RecoveryKeyHandler struct {
	LiveLocation  string
	DefaultSuffix string
	key           *string
}

// NewRecoveryKeyHandler builds a handler for the given owner name (a VG
// or pool name), using the "recovery-key-<owner>.txt" suffix convention.
func NewRecoveryKeyHandler(ownerName string) *RecoveryKeyHandler {
	return &RecoveryKeyHandler{DefaultSuffix: "recovery-key-" + ownerName + ".txt"}
}

// Key lazily generates (on first call) and returns the recovery key.
func (h *RecoveryKeyHandler) Key(generate func() string) string {
	if h.key == nil {
		k := generate()
		h.key = &k
	}
	return *h.key
}

// HasKey reports whether a key has been generated yet, without forcing
// generation.
func (h *RecoveryKeyHandler) HasKey() bool { return h.key != nil }

// ArbitraryDevice is a block device the planner did not create itself -
// typically the encrypted device path handed back by the external
// system service after INSTALL/SETUP_STORAGE_ENCRYPTION.
type ArbitraryDevice struct {
	ID   string
	Path string
}

func (d *ArbitraryDevice) ActionID() string        { return d.ID }
func (d *ArbitraryDevice) ActionKind() string       { return "arbitrary_device" }
func (d *ArbitraryDevice) VolumeSize() quantity.Size { return 0 }

// Raid is a software RAID array composed of one or more Volumes.
type Raid struct {
	ID      string
	Name    string
	Level   string
	Devices []Volume
	Size    quantity.Size
}

func (r *Raid) ActionID() string         { return r.ID }
func (r *Raid) ActionKind() string        { return "raid" }
func (r *Raid) VolumeSize() quantity.Size { return r.Size }
