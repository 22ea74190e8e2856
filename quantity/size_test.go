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

package quantity_test

import (
	"testing"

	. "gopkg.in/check.v1"
	"gopkg.in/yaml.v2"

	"github.com/canonical/guided-storage-planner/quantity"
)

func TestRun(t *testing.T) { TestingT(t) }

type sizeTestSuite struct{}

var _ = Suite(&sizeTestSuite{})

func (s *sizeTestSuite) TestIECString(c *C) {
	for _, tc := range []struct {
		size quantity.Size
		exp  string
	}{
		{512, "512 B"},
		{1000, "1000 B"},
		{1030, "1.01 KiB"},
		{quantity.SizeKiB + 512, "1.50 KiB"},
		{123 * quantity.SizeKiB, "123 KiB"},
		{512 * quantity.SizeKiB, "512 KiB"},
		{578 * quantity.SizeMiB, "578 MiB"},
		{1*quantity.SizeGiB + 123*quantity.SizeMiB, "1.12 GiB"},
		{1024 * quantity.SizeGiB, "1 TiB"},
	} {
		c.Check(tc.size.IECString(), Equals, tc.exp)
	}
}

func (s *sizeTestSuite) TestParseSize(c *C) {
	v, err := quantity.ParseSize("8G")
	c.Assert(err, IsNil)
	c.Check(v, Equals, 8*quantity.SizeGiB)

	v, err = quantity.ParseSize("256MiB")
	c.Assert(err, IsNil)
	c.Check(v, Equals, 256*quantity.SizeMiB)

	_, err = quantity.ParseSize("not-a-size")
	c.Assert(err, ErrorMatches, `cannot parse size "not-a-size".*`)
}

func (s *sizeTestSuite) TestUnmarshalYAMLSize(c *C) {
	type foo struct {
		Size quantity.Size `yaml:"size"`
	}
	var f foo
	err := yaml.Unmarshal([]byte("size: 1234"), &f)
	c.Assert(err, IsNil)
	c.Check(f.Size, Equals, quantity.Size(1234))

	err = yaml.Unmarshal([]byte("size: 4G"), &f)
	c.Assert(err, IsNil)
	c.Check(f.Size, Equals, 4*quantity.SizeGiB)
}
