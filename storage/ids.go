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
	"sync/atomic"

	"github.com/google/uuid"
)

// idAllocator hands out small sequential ids per entity kind, matching
// the teacher's own "disk-sda", "lvm_volgroup-0" style naming instead of
// opaque UUIDs for everything - UUIDs are reserved for where the real
// system needs global uniqueness (zsys dataset UUIDs).
type idAllocator struct {
	counters map[string]*int64
}

func newIDAllocator() *idAllocator {
	return &idAllocator{counters: map[string]*int64{}}
}

func (a *idAllocator) next(kind string) string {
	c, ok := a.counters[kind]
	if !ok {
		var zero int64
		c = &zero
		a.counters[kind] = c
	}
	n := atomic.AddInt64(c, 1) - 1
	return fmt.Sprintf("%s-%d", kind, n)
}

// GenZsysUUID returns a short random hex id, in the shape the original
// gen_zsys_uuid() produces, for naming ZFS ROOT/USERDATA datasets.
func GenZsysUUID() string {
	u := uuid.New()
	return fmt.Sprintf("%x", u[:3])
}

// UniqueName returns base if exists(base) is false, otherwise the first
// of base-1, base-2, ... that is free - the "ubuntu-vg", "ubuntu-vg-1"
// suffixing scheme used for VG names.
func UniqueName(base string, exists func(string) bool) string {
	if !exists(base) {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !exists(candidate) {
			return candidate
		}
	}
}
