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

import (
	"fmt"
	"sort"

	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/quantity"
)

// Model is the Device Model (C2): two generations of the same set of
// disks - the original, loaded straight from a probe and never mutated
// again, and the working copy the planner acts on - plus the ordered
// action log every mutator appends to.
type Model struct {
	alloc *idAllocator

	disks   []*Disk
	raids   []*Raid
	actions []Action

	origDisks []*Disk

	partitionFS map[string]*Filesystem // volume action id -> filesystem
	fsMount     map[string]*Mount      // filesystem id -> mount

	configured bool

	GuidedConfiguration interface{} // set by the guided planner; opaque here to avoid an import cycle
	ResetPartition      *Partition
	DDTarget            *Disk
	CoreBootUseTPM      bool // set by the guided planner when dispatching a core-boot capability
}

// NewModel builds a Model from a freshly probed set of disks. Both
// generations start out identical; LoadProbeData refreshes them later
// and Reset() restores working from original.
func NewModel(disks []*Disk) *Model {
	m := &Model{alloc: newIDAllocator()}
	m.load(disks)
	return m
}

func (m *Model) load(disks []*Disk) {
	m.disks = cloneDisks(disks)
	m.origDisks = cloneDisks(disks)
	m.raids = nil
	m.actions = nil
	m.partitionFS = map[string]*Filesystem{}
	m.fsMount = map[string]*Mount{}
	for _, d := range m.disks {
		m.actions = append(m.actions, d)
		for _, p := range d.Parts {
			m.actions = append(m.actions, p)
			if p.Filesystem != nil {
				m.actions = append(m.actions, p.Filesystem)
				m.partitionFS[p.ID_] = p.Filesystem
				if p.Filesystem.Mount != nil {
					m.actions = append(m.actions, p.Filesystem.Mount)
					m.fsMount[p.Filesystem.ID_] = p.Filesystem.Mount
				}
			}
		}
	}
}

func cloneDisks(disks []*Disk) []*Disk {
	out := make([]*Disk, len(disks))
	for i, d := range disks {
		out[i] = d.Clone()
	}
	return out
}

// LoadProbeData replaces both generations with a freshly probed
// snapshot. Callers in the probe coordinator are responsible for the
// locking/queueing policy in §4.6 - this method always applies
// unconditionally.
func (m *Model) LoadProbeData(disks []*Disk) {
	m.load(disks)
}

// Reset restores the working model to the original generation.
func (m *Model) Reset() {
	m.load(m.origDisks)
}

// OrigDisks returns the immutable original generation, e.g. for
// v2_orig_config_GET.
func (m *Model) OrigDisks() []*Disk { return cloneDisks(m.origDisks) }

func (m *Model) SetConfigured(v bool) { m.configured = v }
func (m *Model) Configured() bool     { return m.configured }

// Disks returns the working disks.
func (m *Model) Disks() []*Disk { return m.disks }

// Raids returns the working raid arrays.
func (m *Model) Raids() []*Raid { return m.raids }

// One finds a disk by id.
func (m *Model) One(id string) (*Disk, error) {
	for _, d := range m.disks {
		if d.ID_ == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDiskNotFound, id)
}

// GetPartition finds a partition on disk by its number.
func (m *Model) GetPartition(disk *Disk, number int) (*Partition, error) {
	for _, p := range disk.Parts {
		if p.Number_ == number {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: partition %d on %s", ErrPartitionNotFound, number, disk.ID_)
}

// AllMounts returns every live mount in the working model - on a
// partition, a logical volume or any other volume - in the order the
// mounts were added to the action log.
func (m *Model) AllMounts() []*Mount {
	var out []*Mount
	for _, a := range m.actions {
		if mnt, ok := a.(*Mount); ok && m.fsMount[mnt.Filesystem.ID_] == mnt {
			out = append(out, mnt)
		}
	}
	return out
}

// IsRootMounted reports whether any mount is at "/".
func (m *Model) IsRootMounted() bool {
	for _, mnt := range m.AllMounts() {
		if mnt.Path == "/" {
			return true
		}
	}
	return false
}

// BitlockeredDisks lists disks carrying a partition whose filesystem
// type is "BitLocker" - a read-only probe the original controller
// exposes as has_bitlocker_GET.
func (m *Model) BitlockeredDisks() []*Disk {
	var out []*Disk
	for _, d := range m.disks {
		for _, p := range d.Parts {
			if p.Filesystem != nil && p.Filesystem.FSType == "BitLocker" {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// nextID allocates a new id for the given entity kind.
func (m *Model) nextID(kind string) string { return m.alloc.next(kind) }

// --- partition CRUD ---

func (m *Model) validatePlacement(disk *Disk, offset quantity.Offset, size quantity.Size, checkAlignment bool) error {
	if checkAlignment {
		align := disk.Alignment()
		if geometry.AlignUp(offset, align.PartAlign) != offset {
			return fmt.Errorf("%w: offset %d not a multiple of %d", ErrMisaligned, offset, align.PartAlign)
		}
		if geometry.AlignUpSize(size, align.PartAlign) != size {
			return fmt.Errorf("%w: size %d not a multiple of %d", ErrMisaligned, size, align.PartAlign)
		}
	}
	end := offset + quantity.Offset(size)
	for _, p := range disk.Parts {
		pStart, pEnd := p.Offset_, p.Offset_+quantity.Offset(p.Size_)
		if offset < pEnd && end > pStart {
			return fmt.Errorf("%w: [%d,%d) overlaps partition %d [%d,%d)", ErrOverlap, offset, end, p.Number_, pStart, pEnd)
		}
	}
	return nil
}

func (m *Model) nextPartitionNumber(disk *Disk, logical bool) int {
	if logical {
		n := 5
		for _, p := range disk.Parts {
			if p.Number_ >= n {
				n = p.Number_ + 1
			}
		}
		return n
	}
	n := 1
	for _, p := range disk.Parts {
		if p.IsLogical() || p.IsExtended() {
			continue
		}
		if p.Number_ >= n {
			n = p.Number_ + 1
		}
	}
	return n
}

// AddPartition creates a raw, unformatted partition at the given
// offset/size, skipping alignment validation when checkAlignment is
// false - used by the Core-Boot Reconciler, which derives offsets from
// an externally supplied, already-valid layout (§4.8 step 3).
func (m *Model) AddPartition(disk *Disk, offset quantity.Offset, size quantity.Size, flag Flag, checkAlignment bool) (*Partition, error) {
	if geometry.RemainingPrimaryPartitions(disk) <= 0 && flag != FlagLogical {
		return nil, fmt.Errorf("%w on disk %s", ErrTooManyPartitions, disk.ID_)
	}
	if err := m.validatePlacement(disk, offset, size, checkAlignment); err != nil {
		return nil, err
	}
	p := &Partition{
		ID_:     m.nextID("partition"),
		Disk:    disk,
		Offset_: offset,
		Size_:   size,
		Number_: m.nextPartitionNumber(disk, flag == FlagLogical),
		Flag_:   flag,
	}
	disk.Parts = append(disk.Parts, p)
	sort.Slice(disk.Parts, func(i, j int) bool { return disk.Parts[i].Offset_ < disk.Parts[j].Offset_ })
	m.actions = append(m.actions, p)
	return p, nil
}

// PartitionSpec describes the filesystem (if any) a newly created
// partition should carry.
type PartitionSpec struct {
	Size   *quantity.Size // nil means "fill the gap"
	FSType string         // "" means leave unformatted
	Mount  string
	Flag   Flag
	Wipe   string
}

// CreatePartition creates a partition filling (or occupying the front
// of) gap, per spec, and - if spec.FSType is set - formats and mounts
// it in one step, mirroring FilesystemManipulator.create_partition.
func (m *Model) CreatePartition(disk *Disk, gap geometry.Gap, spec PartitionSpec) (*Partition, error) {
	size := gap.Size
	if spec.Size != nil {
		size = *spec.Size
	}
	p, err := m.AddPartition(disk, gap.Offset, size, spec.Flag, true)
	if err != nil {
		return nil, err
	}
	p.Wipe = spec.Wipe
	if spec.FSType != "" {
		fs, err := m.AddFilesystem(p, spec.FSType, "")
		if err != nil {
			return nil, err
		}
		if spec.Mount != "" {
			if _, err := m.AddMount(fs, spec.Mount); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// DeletePartition removes a partition (and its filesystem/mount, if
// any) from its disk.
func (m *Model) DeletePartition(p *Partition) error {
	disk := p.Disk
	idx := -1
	for i, cand := range disk.Parts {
		if cand == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrPartitionNotFound, p.ID_)
	}
	if p.Filesystem != nil {
		_ = m.DeleteFilesystem(p.Filesystem)
	}
	disk.Parts = append(disk.Parts[:idx], disk.Parts[idx+1:]...)
	return nil
}

// Reformat deletes every non-in-use partition on disk. If no in-use
// partition remains afterwards, the table itself is wiped and, when
// schema is non-empty, switched to schema; otherwise an in-use
// partition (e.g. a currently-mounted recovery partition) survives and
// the rest of the disk's layout is left for the caller to build around
// via its surviving gaps.
func (m *Model) Reformat(disk *Disk, schema geometry.Schema) {
	anyInUse := false
	for _, p := range append([]*Partition(nil), disk.Parts...) {
		if p.InUse {
			anyInUse = true
			continue
		}
		_ = m.DeletePartition(p)
	}
	if !anyInUse && schema != "" {
		disk.Schema_ = schema
	}
}

// --- filesystem / mount CRUD ---

func (m *Model) AddFilesystem(vol Volume, fstype, label string) (*Filesystem, error) {
	fs := &Filesystem{ID_: m.nextID("format"), Volume: vol, FSType: fstype, Label: label}
	if p, ok := vol.(*Partition); ok {
		p.Filesystem = fs
	}
	m.partitionFS[vol.ActionID()] = fs
	m.actions = append(m.actions, fs)
	return fs, nil
}

func (m *Model) DeleteFilesystem(fs *Filesystem) error {
	if fs.Mount != nil {
		_ = m.DeleteMount(fs.Mount)
	}
	if p, ok := fs.Volume.(*Partition); ok && p.Filesystem == fs {
		p.Filesystem = nil
	}
	delete(m.partitionFS, fs.Volume.ActionID())
	return nil
}

func (m *Model) AddMount(fs *Filesystem, path string) (*Mount, error) {
	mnt := &Mount{ID_: m.nextID("mount"), Filesystem: fs, Path: path}
	fs.Mount = mnt
	m.fsMount[fs.ID_] = mnt
	m.actions = append(m.actions, mnt)
	return mnt, nil
}

func (m *Model) DeleteMount(mnt *Mount) error {
	if mnt.Filesystem != nil && mnt.Filesystem.Mount == mnt {
		mnt.Filesystem.Mount = nil
	}
	delete(m.fsMount, mnt.Filesystem.ID_)
	return nil
}

// --- LVM ---

func (m *Model) vgNameTaken(name string) bool {
	for _, a := range m.actions {
		if vg, ok := a.(*VolumeGroup); ok && vg.Name == name {
			return true
		}
	}
	return false
}

// CreateVolumeGroup creates a volume group named base (suffixed on
// collision per §4.2), optionally LUKS-backed.
func (m *Model) CreateVolumeGroup(base string, devices []Volume, passphrase *string, wantRecoveryKey bool) (*VolumeGroup, error) {
	name := UniqueName(base, m.vgNameTaken)
	vg := &VolumeGroup{ID_: m.nextID("lvm_volgroup"), Name: name, Devices: devices, Passphrase: passphrase}
	if wantRecoveryKey {
		vg.RecoveryKey = NewRecoveryKeyHandler(name)
	}
	m.actions = append(m.actions, vg)
	return vg, nil
}

// CreateLogicalVolume creates an LV in vg, optionally formatting and
// mounting it in the same step.
func (m *Model) CreateLogicalVolume(vg *VolumeGroup, name string, size quantity.Size, fstype, mount string) (*LogicalVolume, error) {
	lv := &LogicalVolume{ID_: m.nextID("lvm_partition"), VG: vg, Name: name, Size_: size}
	m.actions = append(m.actions, lv)
	if fstype != "" {
		fs, err := m.AddFilesystem(lv, fstype, "")
		if err != nil {
			return nil, err
		}
		if mount != "" {
			if _, err := m.AddMount(fs, mount); err != nil {
				return nil, err
			}
		}
	}
	return lv, nil
}

// --- ZFS ---

// CreateZPool creates a ZFS pool on vol.
func (m *Model) CreateZPool(vol Volume, name, mountpoint string, boot bool, canmount, encryptionStyle string, key *string) *ZPool {
	z := &ZPool{
		ID_: m.nextID("zpool"), Volume: vol, Name: name, Mountpoint: mountpoint,
		Boot: boot, Canmount: canmount, EncryptionStyle: encryptionStyle, Key: key, model: m,
	}
	m.actions = append(m.actions, z)
	return z
}

// CreateZFS creates a dataset within the pool.
func (z *ZPool) CreateZFS(name, canmount, mountpoint string) *ZFSDataset {
	d := &ZFSDataset{ID_: z.model.nextID("zfs"), Pool: z, Name: name, Canmount: canmount, Mountpoint: mountpoint}
	z.model.actions = append(z.model.actions, d)
	return d
}

// CreateCryptoswap appends an encrypted swap arbitrary device
// placeholder to the action log. The placeholder does not record part
// (the actual cryptsetup invocation belongs to the downstream action
// executor, out of scope here).
func (m *Model) CreateCryptoswap(part *Partition) *ArbitraryDevice {
	d := &ArbitraryDevice{ID: m.nextID("cryptoswap")}
	m.actions = append(m.actions, d)
	return d
}

// --- recovery keys ---

// LoadOrGenerateRecoveryKeys forces key generation for every
// RecoveryKeyHandler created so far.
func (m *Model) LoadOrGenerateRecoveryKeys(generate func() string) {
	for _, a := range m.actions {
		if vg, ok := a.(*VolumeGroup); ok && vg.RecoveryKey != nil {
			vg.RecoveryKey.Key(generate)
		}
	}
}

// ActionLog returns the ordered action log.
func (m *Model) ActionLog() []Action { return m.actions }
