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

// Package geometry is the alignment and gap-derivation layer (C1). It
// never caches: gaps are recomputed from a disk's current partition list
// on every call, which is the whole point - staleness bugs disappear at
// the cost of an O(P) scan, and P is bounded by 128 GPT entries.
package geometry

import (
	"fmt"
	"sort"

	"github.com/canonical/guided-storage-planner/quantity"
)

// Schema is a partition table type.
type Schema string

const (
	SchemaGPT     Schema = "gpt"
	SchemaMSDOS   Schema = "msdos"
	SchemaUnknown Schema = "unknown"
)

// AlignmentData describes how a disk's partition table constrains
// offsets and sizes.
type AlignmentData struct {
	MinStartOffset   quantity.Offset
	PartAlign        quantity.Size
	EndAlignment     quantity.Size
	ExtendedOverhead quantity.Size // the 1 MiB logical spacer
}

// PartitionView is the minimal read surface Geometry needs from a
// partition; storage.Partition implements it.
type PartitionView interface {
	Offset() quantity.Offset
	Size() quantity.Size
	Number() int
	IsLogical() bool
	IsExtended() bool
	IsBIOSGrub() bool
}

// DiskView is the minimal read surface Geometry needs from a disk;
// storage.Disk implements it.
type DiskView interface {
	ID() string
	TotalSize() quantity.Size
	Schema() Schema
	Alignment() AlignmentData
	Partitions() []PartitionView
}

// AlignUp rounds x up to the next multiple of a.
func AlignUp(x quantity.Offset, a quantity.Size) quantity.Offset {
	if a == 0 {
		return x
	}
	rem := uint64(x) % uint64(a)
	if rem == 0 {
		return x
	}
	return x + quantity.Offset(uint64(a)-rem)
}

// AlignUpSize rounds a size up to the next multiple of a.
func AlignUpSize(x quantity.Size, a quantity.Size) quantity.Size {
	return quantity.Size(AlignUp(quantity.Offset(x), a))
}

// AlignDown rounds x down to the previous multiple of a.
func AlignDown(x quantity.Offset, a quantity.Size) quantity.Offset {
	if a == 0 {
		return x
	}
	rem := uint64(x) % uint64(a)
	return x - quantity.Offset(rem)
}

// AlignDownSize rounds a size down to the previous multiple of a.
func AlignDownSize(x quantity.Size, a quantity.Size) quantity.Size {
	return quantity.Size(AlignDown(quantity.Offset(x), a))
}

// Gap is a free region on a disk. Gaps are derived state: they are
// never stored on the disk model, only computed on demand.
type Gap struct {
	Device     DiskView
	Offset     quantity.Offset
	Size       quantity.Size
	InExtended bool
}

func (g Gap) End() quantity.Offset { return g.Offset + quantity.Offset(g.Size) }

// endOverhead returns the number of trailing bytes on the disk that can
// never be allocated (backup GPT header and similar).
func endOverhead(a AlignmentData) quantity.Size {
	return a.EndAlignment
}

// Gaps returns every free region on disk, in ascending offset order,
// with adjacent free regions already merged.
func Gaps(disk DiskView) []Gap {
	align := disk.Alignment()
	usableEnd := quantity.Offset(disk.TotalSize()) - quantity.Offset(endOverhead(align))

	parts := append([]PartitionView(nil), disk.Partitions()...)
	sort.Slice(parts, func(i, j int) bool { return parts[i].Offset() < parts[j].Offset() })

	var gaps []Gap
	cursor := align.MinStartOffset
	var inExtendedCursor bool

	pushGap := func(start, end quantity.Offset, inExtended bool) {
		if end <= start {
			return
		}
		size := quantity.Size(end - start)
		if len(gaps) > 0 {
			last := &gaps[len(gaps)-1]
			if last.End() == start && last.InExtended == inExtended {
				last.Size += size
				return
			}
		}
		gaps = append(gaps, Gap{Device: disk, Offset: start, Size: size, InExtended: inExtended})
	}

	for _, p := range parts {
		pStart := p.Offset()
		pEnd := p.Offset() + quantity.Offset(p.Size())
		if pStart > cursor {
			pushGap(cursor, pStart, inExtendedCursor)
		}
		if p.IsExtended() {
			inExtendedCursor = true
		}
		if pEnd > cursor {
			cursor = pEnd
		}
		if p.IsLogical() {
			inExtendedCursor = true
		}
	}
	if usableEnd > cursor {
		pushGap(cursor, usableEnd, inExtendedCursor)
	}
	return gaps
}

// LargestGap returns the largest gap across one or more disks, breaking
// ties by lower device id then lower offset.
func LargestGap(disks ...DiskView) *Gap {
	var best *Gap
	for _, d := range disks {
		for _, g := range Gaps(d) {
			g := g
			if best == nil {
				best = &g
				continue
			}
			if g.Size > best.Size {
				best = &g
				continue
			}
			if g.Size == best.Size {
				if g.Device.ID() < best.Device.ID() {
					best = &g
				} else if g.Device.ID() == best.Device.ID() && g.Offset < best.Offset {
					best = &g
				}
			}
		}
	}
	return best
}

// AtOffset returns the gap whose offset equals the given offset exactly.
func AtOffset(disk DiskView, offset quantity.Offset) (Gap, error) {
	for _, g := range Gaps(disk) {
		if g.Offset == offset {
			return g, nil
		}
	}
	return Gap{}, fmt.Errorf("%w: no gap at offset %d on disk %s", ErrGapNotFound, offset, disk.ID())
}

// After returns the smallest-offset gap strictly after the given offset.
func After(disk DiskView, offset quantity.Offset) *Gap {
	var best *Gap
	for _, g := range Gaps(disk) {
		g := g
		if g.Offset <= offset {
			continue
		}
		if best == nil || g.Offset < best.Offset {
			best = &g
		}
	}
	return best
}

// Refresh re-derives the gap that now occupies (part of) this gap's
// original range, after the disk has been mutated (e.g. a boot
// partition was carved from its front). It is not cached state - a
// fresh scan every time, by design (see §9 "Derived-state design").
func (g Gap) Refresh() *Gap {
	var best *Gap
	for _, cand := range Gaps(g.Device) {
		cand := cand
		if cand.Offset < g.Offset || cand.Offset >= g.End() {
			continue
		}
		if best == nil || cand.Size > best.Size {
			best = &cand
		}
	}
	return best
}

// Split returns the leading size-byte gap, aligned to the disk's
// partition alignment, and the remainder (nil if nothing is left). If
// the gap lies within an extended partition, the remainder begins after
// the 1 MiB logical-partition spacer.
func (g Gap) Split(size quantity.Size) (Gap, *Gap) {
	align := g.Device.Alignment()
	leadOffset := AlignUp(g.Offset, align.PartAlign)
	leadEnd := leadOffset + quantity.Offset(AlignUpSize(size, align.PartAlign))
	lead := Gap{Device: g.Device, Offset: leadOffset, Size: quantity.Size(leadEnd - leadOffset), InExtended: g.InExtended}

	remStart := leadEnd
	if g.InExtended {
		remStart += quantity.Offset(align.ExtendedOverhead)
	}
	if remStart >= g.End() {
		return lead, nil
	}
	rem := Gap{Device: g.Device, Offset: remStart, Size: quantity.Size(g.End() - remStart), InExtended: g.InExtended}
	return lead, &rem
}

// RemainingPrimaryPartitions reports how many more primary (or, for
// msdos, primary-or-extended) partition slots are available.
func RemainingPrimaryPartitions(disk DiskView) int {
	align := disk.Alignment()
	_ = align
	switch disk.Schema() {
	case SchemaGPT:
		return 128 - len(disk.Partitions())
	case SchemaMSDOS:
		hasExtended := false
		primaries := 0
		for _, p := range disk.Partitions() {
			if p.IsExtended() {
				hasExtended = true
				continue
			}
			if p.IsLogical() {
				continue
			}
			primaries++
		}
		if hasExtended {
			return 4 - primaries - 1
		}
		return 4 - primaries
	default:
		return 0
	}
}
