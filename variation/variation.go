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

// Package variation is the Variation Catalog (C5): a classic system
// has exactly one variation, and a core-boot system description yields
// one variation from its single volume - InfoForSystem rejects
// descriptions with any other number of volumes, so every catalog built
// here holds exactly one variation.
package variation

import (
	"fmt"

	"github.com/canonical/guided-storage-planner/capability"
	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/quantity"
)

// Info is one entry in the catalog: a name, the minimum disk size this
// variation needs, and the capabilities available when using it.
type Info struct {
	Name           string
	MinSize        quantity.Size
	Capabilities   capability.CapabilityInfo
}

// Catalog is the full set of variations offered for the current system.
type Catalog struct {
	Variations []Info
}

// Classic returns the single-entry catalog every non-core-boot system
// uses: one nameless variation with no inherent minimum size of its own
// (the caller combines it with a concrete install minimum).
func Classic(caps capability.CapabilityInfo) Catalog {
	return Catalog{Variations: []Info{{Name: "", MinSize: 0, Capabilities: caps}}}
}

// DD returns the catalog used for a dd-image install: one variation
// named "dd" with an empty capability set (the capability package has
// no DD capability), so callers have a uniform Catalog shape to render.
func DD() Catalog {
	return Catalog{Variations: []Info{{Name: "dd", MinSize: 0}}}
}

// VolumeDescriptor is the subset of an external system service's
// "volumes" map entry this package needs to build a core-boot
// variation: its schema and minimum size.
type VolumeDescriptor struct {
	Name    string
	Schema  geometry.Schema
	MinSize quantity.Size
}

// InfoForSystem builds the core-boot catalog from the volumes a system
// description reports, rejecting descriptions this planner cannot
// reconcile: anything other than exactly one volume (multi-disk
// core-boot layouts are a non-goal) or a volume whose schema isn't GPT.
func InfoForSystem(volumes []VolumeDescriptor, caps capability.CapabilityInfo) (Catalog, error) {
	if len(volumes) != 1 {
		return Catalog{}, fmt.Errorf("%w: got %d volumes", ErrUnsupportedVolumeCount, len(volumes))
	}
	v := volumes[0]
	if v.Schema != geometry.SchemaGPT {
		return Catalog{}, fmt.Errorf("%w: volume %q has schema %q", ErrUnsupportedSchema, v.Name, v.Schema)
	}
	return Catalog{Variations: []Info{{Name: v.Name, MinSize: v.MinSize, Capabilities: caps}}}, nil
}
