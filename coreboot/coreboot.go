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

// Package coreboot is the Core-Boot Reconciler (C8): a core-boot
// system's gadget already describes its volume structure (the
// partitions a gadget snap wants, in order, with fixed or minimum
// sizes); this package walks that structure, computes concrete
// offsets, decides which existing partitions survive untouched, which
// get wiped and recreated, and which are brand new - then drives the
// external system service's SETUP_STORAGE_ENCRYPTION handshake before
// anything is written.
package coreboot

import (
	"context"
	"fmt"

	"github.com/canonical/guided-storage-planner/externalsystem"
	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/quantity"
	"github.com/canonical/guided-storage-planner/storage"
)

// StructureRole names the gadget role of a volume structure, mirroring
// the subset of gadget.yaml roles this planner understands.
type StructureRole string

const (
	RoleNone       StructureRole = ""
	RoleMBR        StructureRole = "mbr"
	RoleSystemBoot StructureRole = "system-boot"
	RoleSystemSeed StructureRole = "system-seed"
	RoleSystemData StructureRole = "system-data"
	RoleSystemSave StructureRole = "system-save"
)

// Structure is one entry of a core-boot gadget's on-disk volume layout,
// already resolved to a size (VariationInfo's schema validation having
// already confirmed the volume is GPT and singular).
type Structure struct {
	Name       string
	Role       StructureRole
	TypeGUID   string
	Size       quantity.Size
	Filesystem string
	Preserve   bool // Role == RoleSystemSave, or any structure marked update:{preserve: true}
}

// OffsetsAndSizes walks structures in order, starting at
// align.MinStartOffset, and returns each one's computed offset -
// _offsets_and_sizes_for_volume's core job, generalized away from the
// Python dict-of-dicts into a parallel slice of offsets.
func OffsetsAndSizes(structures []Structure, align geometry.AlignmentData) []quantity.Offset {
	offsets := make([]quantity.Offset, len(structures))
	cursor := align.MinStartOffset
	for i, st := range structures {
		cursor = geometry.AlignUp(cursor, align.PartAlign)
		offsets[i] = cursor
		cursor += quantity.Offset(st.Size)
	}
	return offsets
}

type offsetSize struct {
	offset quantity.Offset
	size   quantity.Size
}

// Reconcile walks disk's current partitions against the gadget's
// intended structures and decides, partition by partition, whether to
// preserve it untouched, delete and recreate it, or create it fresh.
// Preservation is keyed by an exact (offset, size) match against the
// computed layout, not by type GUID or any flag carried on the input
// structure - a partition either already sits exactly where the gadget
// wants it, or it doesn't, and curtin only leaves alone what it doesn't
// have to touch. If the disk's schema doesn't already match the
// gadget's, nothing can be preserved and the disk is switched to GPT
// and wiped outright.
func Reconcile(m *storage.Model, disk *storage.Disk, structures []Structure) ([]*storage.Partition, error) {
	align := disk.Alignment()
	offsets := OffsetsAndSizes(structures, align)

	existing := map[offsetSize]*storage.Partition{}
	schemaMatches := disk.Schema() == geometry.SchemaGPT
	if schemaMatches {
		for _, p := range disk.Parts {
			existing[offsetSize{p.Offset_, p.Size_}] = p
		}
	}

	// match also accepts, for a final system-data structure, a partition
	// at its offset that an earlier pass grew to fill the rest of the disk.
	match := func(i int) (*storage.Partition, bool) {
		st := structures[i]
		if p, ok := existing[offsetSize{offsets[i], st.Size}]; ok {
			return p, true
		}
		for k, p := range existing {
			if st.Role == RoleSystemData && i == len(structures)-1 && k.offset == offsets[i] && k.size > st.Size {
				return p, true
			}
		}
		return nil, false
	}

	preserved := map[*storage.Partition]bool{}
	for i := range structures {
		if p, ok := match(i); ok {
			preserved[p] = true
		}
	}
	for _, p := range append([]*storage.Partition(nil), disk.Parts...) {
		if !preserved[p] {
			if err := m.DeletePartition(p); err != nil {
				return nil, err
			}
			delete(existing, offsetSize{p.Offset_, p.Size_})
		}
	}
	if len(preserved) == 0 {
		m.Reformat(disk, geometry.SchemaGPT)
		existing = map[offsetSize]*storage.Partition{}
	}

	out := make([]*storage.Partition, len(structures))
	for i, st := range structures {
		offset, size := offsets[i], st.Size
		part, found := match(i)
		if !found {
			if st.Role == RoleSystemData && i == len(structures)-1 {
				if gap, err := geometry.AtOffset(disk, offset); err == nil && gap.Size > size {
					size = gap.Size
				}
			}
			var err error
			part, err = m.AddPartition(disk, offset, size, storage.FlagForTypeGUID(st.TypeGUID), false)
			if err != nil {
				return nil, fmt.Errorf("reconciling structure %q: %w", st.Name, err)
			}
		}
		part.TypeGUID = st.TypeGUID
		part.PartitionName = st.Name
		part.Preserve = st.Preserve || found

		if st.Filesystem != "" {
			if part.Filesystem != nil {
				if err := m.DeleteFilesystem(part.Filesystem); err != nil {
					return nil, err
				}
			}
			fs, err := m.AddFilesystem(part, st.Filesystem, "")
			if err != nil {
				return nil, err
			}
			switch {
			case st.Role == RoleSystemData:
				if _, err := m.AddMount(fs, "/"); err != nil {
					return nil, err
				}
			case st.Role == RoleSystemBoot:
				if _, err := m.AddMount(fs, "/boot"); err != nil {
					return nil, err
				}
			case part.Flag_ == storage.FlagESP:
				part.GrubDevice = true
				if _, err := m.AddMount(fs, "/boot/efi"); err != nil {
					return nil, err
				}
			}
		}
		out[i] = part
	}
	return out, nil
}

// SetupEncryption drives the external system service's
// SETUP_STORAGE_ENCRYPTION step for label, using the already-reconciled
// partitions' offsets/sizes as the on-volumes payload, and returns one
// ArbitraryDevice per encrypted device path in the response, keyed by
// the name the service reported (cast to StructureRole). The devices
// are not added to m's action log, and no filesystem is repointed at
// them.
func SetupEncryption(ctx context.Context, client *externalsystem.Client, m *storage.Model, label string, volumeName string, parts []*storage.Partition) (map[StructureRole]*storage.ArbitraryDevice, error) {
	onVolumes := map[string]interface{}{}
	structures := make([]map[string]interface{}, len(parts))
	for i, p := range parts {
		structures[i] = map[string]interface{}{
			"name":   p.PartitionName,
			"offset": uint64(p.Offset_),
			"size":   uint64(p.Size_),
		}
	}
	onVolumes[volumeName] = map[string]interface{}{"structure": structures}

	resp, err := client.SetupStorageEncryption(ctx, label, externalsystem.EncryptionRequest{
		Action:    "SETUP_STORAGE_ENCRYPTION",
		Step:      "setup-storage-encryption",
		OnVolumes: onVolumes,
	})
	if err != nil {
		return nil, err
	}

	// parts carries no Role back from the gadget structures Reconcile
	// consumed, only names; keying by name (cast to StructureRole) is
	// enough for callers that already know which name maps to which
	// role, same as the name-keyed dict the external system service
	// itself returns.
	out := map[StructureRole]*storage.ArbitraryDevice{}
	for name, path := range resp.EncryptedDevices {
		dev := &storage.ArbitraryDevice{ID: "arbitrary-device-" + name, Path: path}
		out[StructureRole(name)] = dev
	}
	return out, nil
}

// FinishInstall is the terminal step of the core-boot path: it simply
// asserts every structure Reconcile produced has either a filesystem or
// is explicitly preserved, since a core-boot volume with a bare,
// unformatted, non-preserved partition indicates a gadget/gap mismatch
// that should have been caught earlier.
func FinishInstall(parts []*storage.Partition) error {
	for _, p := range parts {
		if p.Filesystem == nil && !p.Preserve {
			return fmt.Errorf("%w: partition %q has neither a filesystem nor preserve set", ErrIncompleteStructure, p.PartitionName)
		}
	}
	return nil
}
