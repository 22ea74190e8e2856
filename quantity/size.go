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

// Package quantity collects the byte-count and offset types shared by
// every layer of the planner, along with the human-readable formatting
// and parsing used at its edges (autoinstall size strings, du output).
package quantity

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Size is a quantity of bytes.
type Size uint64

// Offset is a byte offset into a disk.
type Offset uint64

const (
	SizeKiB = Size(1 << 10)
	SizeMiB = Size(1 << 20)
	SizeGiB = Size(1 << 30)
	SizeTiB = Size(1 << 40)
	SizePiB = Size(1 << 50)
)

// IECString renders the size using IEC binary units, matching the
// rounding the teacher's own quantity package uses: two decimals when
// not an exact multiple, no decimals when exact, and never dropping
// below whole bytes.
func (s Size) IECString() string {
	units := []struct {
		size Size
		name string
	}{
		{SizePiB, "PiB"},
		{SizeTiB, "TiB"},
		{SizeGiB, "GiB"},
		{SizeMiB, "MiB"},
		{SizeKiB, "KiB"},
	}
	for _, u := range units {
		if s >= u.size {
			v := float64(s) / float64(u.size)
			if v == float64(int64(v)) {
				return fmt.Sprintf("%d %s", int64(v), u.name)
			}
			return fmt.Sprintf("%.2f %s", v, u.name)
		}
	}
	return fmt.Sprintf("%d B", uint64(s))
}

func (s Size) String() string { return s.IECString() }

// MarshalYAML renders the size as a plain integer of bytes.
func (s Size) MarshalYAML() (interface{}, error) {
	return uint64(s), nil
}

// UnmarshalYAML accepts either an integer byte count or a human size
// string ("8G", "512MiB", ...), delegating the string form to
// ParseSize.
func (s *Size) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var asInt uint64
	if err := unmarshal(&asInt); err == nil {
		*s = Size(asInt)
		return nil
	}
	var asString string
	if err := unmarshal(&asString); err != nil {
		return err
	}
	parsed, err := ParseSize(asString)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSize parses a human-readable size string ("8G", "512MiB",
// "1.5 GB") into a byte count. A bare unit letter ("8G") counts in
// binary units, like its "iB" spelling; "GB"-style suffixes are decimal.
// Used for autoinstall's reset-partition size string form and any other
// human-size input at the planner's boundary.
func ParseSize(s string) (Size, error) {
	in := s
	if l := len(in); l > 0 {
		switch in[l-1] {
		case 'K', 'M', 'G', 'T', 'P', 'k', 'm', 'g', 't', 'p':
			in += "iB"
		}
	}
	n, err := humanize.ParseBytes(in)
	if err != nil {
		return 0, fmt.Errorf("cannot parse size %q: %w", s, err)
	}
	return Size(n), nil
}
