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

// ZPool is a ZFS pool built on a single Volume.
type ZPool struct {
	ID_             string
	Volume          Volume
	Name            string
	Mountpoint      string
	Boot            bool
	Canmount        string
	EncryptionStyle string
	Key             *string
	model           *Model
}

func (z *ZPool) ActionID() string  { return z.ID_ }
func (z *ZPool) ActionKind() string { return "zpool" }

// ZFSDataset is a dataset within a ZPool (e.g. "ROOT/ubuntu_ab12cd").
type ZFSDataset struct {
	ID_        string
	Pool       *ZPool
	Name       string
	Canmount   string
	Mountpoint string
}

func (d *ZFSDataset) ActionID() string  { return d.ID_ }
func (d *ZFSDataset) ActionKind() string { return "zfs" }
