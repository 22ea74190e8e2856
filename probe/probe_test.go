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

package probe_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	. "gopkg.in/check.v1"

	"github.com/canonical/guided-storage-planner/probe"
	"github.com/canonical/guided-storage-planner/storage"
)

func Test(t *testing.T) { TestingT(t) }

type probeSuite struct{}

var _ = Suite(&probeSuite{})

type fakeProber struct {
	disks []*storage.Disk
	err   error
}

func (p *fakeProber) Probe(ctx context.Context, phase probe.Phase) ([]*storage.Disk, error) {
	return p.disks, p.err
}

func (s *probeSuite) TestProbeOnceRecordsLastResult(c *C) {
	fp := &fakeProber{disks: []*storage.Disk{{ID_: "disk-sda"}}}
	coord := probe.New(fp)

	res := coord.ProbeOnce(context.Background(), probe.PhaseQuick)
	c.Check(res.Err, IsNil)
	c.Check(res.Restricted, Equals, true)
	c.Check(coord.LastResult().Disks, HasLen, 1)
}

func (s *probeSuite) TestProbeOnceQueuesWhileLocked(c *C) {
	fp := &fakeProber{disks: []*storage.Disk{{ID_: "disk-sda"}}}
	coord := probe.New(fp)

	coord.Lock()
	coord.ProbeOnce(context.Background(), probe.PhaseFull)
	c.Check(coord.LastResult(), IsNil)

	queued := coord.Unlock()
	c.Assert(queued, NotNil)
	c.Check(queued.Disks, HasLen, 1)
	c.Check(queued.Restricted, Equals, false)
}

func (s *probeSuite) TestProbeOnceErrorIsRecorded(c *C) {
	fp := &fakeProber{err: errors.New("boom")}
	coord := probe.New(fp)

	res := coord.ProbeOnce(context.Background(), probe.PhaseQuick)
	c.Check(res.Err, ErrorMatches, "boom")
}

func (s *probeSuite) TestHasRemappedNVMeDetectsVMD(c *C) {
	glob := func(pattern string) ([]string, error) {
		return []string{"/sys/class/nvme/nvme0"}, nil
	}
	read := func(path string) (string, error) {
		if contains(path, "vendor") {
			return "0x8086\n", nil
		}
		return "0x9a0b\n", nil
	}
	ok, err := probe.HasRemappedNVMe(glob, read)
	c.Assert(err, IsNil)
	c.Check(ok, Equals, true)
}

func (s *probeSuite) TestHasRemappedNVMeFalseForOrdinaryController(c *C) {
	glob := func(pattern string) ([]string, error) {
		return []string{"/sys/class/nvme/nvme0"}, nil
	}
	read := func(path string) (string, error) {
		if contains(path, "vendor") {
			return "0x144d\n", nil
		}
		return "0xa808\n", nil
	}
	ok, err := probe.HasRemappedNVMe(glob, read)
	c.Assert(err, IsNil)
	c.Check(ok, Equals, false)
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}

func ExampleCoordinator_Probe() {
	fp := &fakeProber{disks: []*storage.Disk{{ID_: "disk-sda"}}}
	coord := probe.New(fp)
	coord.Probe(context.Background())
	_ = coord.Wait()
	fmt.Println(coord.LastResult().Disks[0].ID_)
	// Output: disk-sda
}
