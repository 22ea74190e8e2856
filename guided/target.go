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

// Package guided is the Guided Planner (C7): given a target (reformat
// this disk, use this gap, resize that partition, or take full manual
// control) and a chosen capability, it drives the storage model and
// capability engine to lay out a complete, installable system in one
// step, the way the "Use An Entire Disk" / "Manual" choice in the
// installer's guided screen does.
package guided

import (
	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/quantity"
	"github.com/canonical/guided-storage-planner/storage"
)

// Target is the sealed sum type identifying what the guided planner
// should act on: exactly one of Reformat, UseGap, Resize or Manual.
// The unexported method closes the set so a type switch over it can be
// exhaustive - any new variant is a compile error everywhere it isn't
// handled, the same guarantee the original's
// functools.singledispatchmethod dispatch gets from Python's type
// system only at runtime.
type Target interface {
	isTarget()
	DiskID() string
}

// Reformat targets an entire disk, wiping it first.
type Reformat struct {
	Disk *storage.Disk
}

func (Reformat) isTarget()        {}
func (r Reformat) DiskID() string { return r.Disk.ID_ }

// UseGap targets a specific free region on a disk, leaving any existing
// partitions untouched.
type UseGap struct {
	Disk *storage.Disk
	Gap  geometry.Gap
}

func (UseGap) isTarget()        {}
func (u UseGap) DiskID() string { return u.Disk.ID_ }

// Resize shrinks an existing partition to newSize and uses the freed
// space.
type Resize struct {
	Disk      *storage.Disk
	Partition *storage.Partition
	NewSize   quantity.Size
}

func (Resize) isTarget()        {}
func (r Resize) DiskID() string { return r.Disk.ID_ }

// Manual means the user has taken over partitioning entirely; the
// guided planner's only job for Manual is validation, not layout.
type Manual struct{}

func (Manual) isTarget()      {}
func (Manual) DiskID() string { return "" }
