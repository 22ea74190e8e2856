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

package variation_test

import (
	"testing"

	. "gopkg.in/check.v1"

	"github.com/canonical/guided-storage-planner/capability"
	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/quantity"
	"github.com/canonical/guided-storage-planner/variation"
)

func Test(t *testing.T) { TestingT(t) }

type variationSuite struct{}

var _ = Suite(&variationSuite{})

func (s *variationSuite) TestClassicHasOneNamelessVariation(c *C) {
	cat := variation.Classic(capability.ClassicInitial())
	c.Assert(cat.Variations, HasLen, 1)
	c.Check(cat.Variations[0].Name, Equals, "")
}

func (s *variationSuite) TestInfoForSystemRejectsMultipleVolumes(c *C) {
	_, err := variation.InfoForSystem([]variation.VolumeDescriptor{
		{Name: "pc", Schema: geometry.SchemaGPT},
		{Name: "pc-kernel", Schema: geometry.SchemaGPT},
	}, capability.CapabilityInfo{})
	c.Check(err, ErrorMatches, ".*got 2 volumes.*")
}

func (s *variationSuite) TestInfoForSystemRejectsNonGPT(c *C) {
	_, err := variation.InfoForSystem([]variation.VolumeDescriptor{
		{Name: "pc", Schema: geometry.SchemaMSDOS},
	}, capability.CapabilityInfo{})
	c.Check(err, ErrorMatches, ".*schema.*")
}

func (s *variationSuite) TestInfoForSystemAccepted(c *C) {
	cat, err := variation.InfoForSystem([]variation.VolumeDescriptor{
		{Name: "pc", Schema: geometry.SchemaGPT, MinSize: 4 * quantity.SizeGiB},
	}, capability.ClassicInitial())
	c.Assert(err, IsNil)
	c.Check(cat.Variations[0].MinSize, Equals, 4*quantity.SizeGiB)
}
