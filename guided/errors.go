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

package guided

import "errors"

var (
	ErrPasswordRequired         = errors.New("a password is required for this capability")
	ErrNoUsableSpace            = errors.New("no usable space for a guided install")
	ErrManualNotGuided          = errors.New("manual partitioning is not a guided target")
	ErrUnknownTarget            = errors.New("unknown guided target type")
	ErrUnsupportedCapability    = errors.New("unsupported guided capability")
	ErrUnsupportedLayoutMode    = errors.New("unsupported autoinstall layout mode")
	ErrNoRoomForBootPartition   = errors.New("no room for a bootloader partition on this disk")
	ErrCoreBootRequiresReformat = errors.New("core-boot capabilities only support the reformat target")
)
