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
	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/quantity"
)

// Disk is a probed block device.
type Disk struct {
	ID_       string
	Path      string
	Size_     quantity.Size
	Schema_   geometry.Schema
	Align     geometry.AlignmentData
	Parts     []*Partition
	// ConstructedFrom is set when this disk is actually a member of a
	// software raid array (potential_boot_disks needs to know this to
	// avoid double-offering a raid and its members as boot candidates).
	ConstructedFrom *Raid
}

func (d *Disk) ActionID() string         { return d.ID_ }
func (d *Disk) ActionKind() string        { return "disk" }
func (d *Disk) VolumeSize() quantity.Size { return d.Size_ }

func (d *Disk) ID() string                         { return d.ID_ }
func (d *Disk) TotalSize() quantity.Size           { return d.Size_ }
func (d *Disk) Schema() geometry.Schema            { return d.Schema_ }
func (d *Disk) Alignment() geometry.AlignmentData  { return d.Align }

// Partitions satisfies geometry.DiskView.
func (d *Disk) Partitions() []geometry.PartitionView {
	views := make([]geometry.PartitionView, len(d.Parts))
	for i, p := range d.Parts {
		views[i] = p
	}
	return views
}

// PartitionList returns the concrete *Partition slice, for callers that
// need more than the geometry view (CRUD, rendering, ...).
func (d *Disk) PartitionList() []*Partition { return d.Parts }

// Clone deep-copies the disk and its partitions, for the
// original/working generation split.
func (d *Disk) Clone() *Disk {
	cp := *d
	cp.Parts = make([]*Partition, len(d.Parts))
	for i, p := range d.Parts {
		pc := *p
		pc.Disk = &cp
		cp.Parts[i] = &pc
	}
	return &cp
}

// Partition is an entry in a disk's partition table.
type Partition struct {
	ID_              string
	Disk             *Disk
	Offset_          quantity.Offset
	Size_            quantity.Size
	Number_          int
	Flag_            Flag
	TypeGUID         string
	PartitionName    string
	Filesystem       *Filesystem
	InUse            bool // immovable: currently mounted
	Preserve         bool // do not wipe
	EstimatedMinSize quantity.Size
	Resize           bool
	GrubDevice       bool
	Wipe             string
}

func (p *Partition) ActionID() string         { return p.ID_ }
func (p *Partition) ActionKind() string        { return "partition" }
func (p *Partition) VolumeSize() quantity.Size { return p.Size_ }

func (p *Partition) Offset() quantity.Offset { return p.Offset_ }
func (p *Partition) Size() quantity.Size     { return p.Size_ }
func (p *Partition) Number() int             { return p.Number_ }
func (p *Partition) IsLogical() bool         { return p.Flag_ == FlagLogical }
func (p *Partition) IsExtended() bool        { return p.Flag_ == FlagExtended }
func (p *Partition) IsBIOSGrub() bool        { return p.Flag_ == FlagBIOSGrub }

// MountPoint returns the partition's mount path, if its filesystem is
// mounted, else "".
func (p *Partition) MountPoint() string {
	if p.Filesystem == nil || p.Filesystem.Mount == nil {
		return ""
	}
	return p.Filesystem.Mount.Path
}
