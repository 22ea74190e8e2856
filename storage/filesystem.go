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

// Filesystem formats a Volume (Partition, LogicalVolume, Raid or
// ArbitraryDevice).
type Filesystem struct {
	ID_    string
	Volume Volume
	FSType string
	Label  string
	Wipe   string
	Mount  *Mount
}

func (f *Filesystem) ActionID() string  { return f.ID_ }
func (f *Filesystem) ActionKind() string { return "format" }

// Mount attaches a Filesystem at a path.
type Mount struct {
	ID_        string
	Filesystem *Filesystem
	Path       string
}

func (m *Mount) ActionID() string  { return m.ID_ }
func (m *Mount) ActionKind() string { return "mount" }
