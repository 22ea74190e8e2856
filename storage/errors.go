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

import "errors"

var (
	ErrDiskNotFound      = errors.New("disk not found")
	ErrPartitionNotFound = errors.New("partition not found")
	ErrOverlap           = errors.New("partition overlaps an existing partition")
	ErrMisaligned        = errors.New("offset or size is not aligned")
	ErrTooManyPartitions = errors.New("no remaining primary partition slots")
	ErrNameInUse         = errors.New("name already in use")
)
