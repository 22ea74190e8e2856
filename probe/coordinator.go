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

package probe

import (
	"context"
	"sync"
	"time"

	"github.com/canonical/guided-storage-planner/internal/logger"
	"github.com/canonical/guided-storage-planner/storage"
)

// Phase timeouts, matching the original's 90s "quick" probe and 180s
// "full" probe (which additionally runs os-prober and friends).
const (
	QuickProbeTimeout = 90 * time.Second
	FullProbeTimeout  = 180 * time.Second
)

// Prober runs one probe pass and returns the resulting disks. Phase
// distinguishes the cheap pass from the slow, capability-heavy one so a
// real implementation can skip expensive sub-probes on the quick pass.
type Prober interface {
	Probe(ctx context.Context, phase Phase) ([]*storage.Disk, error)
}

// Phase names a probe pass.
type Phase string

const (
	PhaseQuick Phase = "quick"
	PhaseFull  Phase = "full"
)

// Result is one probe's outcome: either disks, or an error, tagged with
// whether it came from a restricted (quick) or full pass. Probe does
// not go on to the full pass after a quick-pass error; that error ends
// the task.
type Result struct {
	Disks      []*storage.Disk
	Err        error
	Restricted bool
}

// Coordinator runs probes against a Prober, serializing concurrent
// requests through a SingleInstanceTask and applying the locked/queued
// policy from §4.6: while the model is "probe locked" (the guided
// planner is actively applying a choice), a probe that completes is
// queued instead of applied, and flushed once the lock is released.
type Coordinator struct {
	prober Prober
	task   SingleInstanceTask

	mu           sync.Mutex
	locked       bool
	queuedResult *Result
	lastResult   *Result
}

// New builds a Coordinator around prober.
func New(prober Prober) *Coordinator {
	return &Coordinator{prober: prober}
}

// Lock marks the model probe-locked: future probe results are queued,
// not applied, until Unlock is called.
func (c *Coordinator) Lock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked = true
}

// Unlock releases the probe lock and returns the queued result (if any)
// so the caller can apply it, mirroring ensure_probing's
// "apply queued probe data" step.
func (c *Coordinator) Unlock() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked = false
	q := c.queuedResult
	c.queuedResult = nil
	return q
}

// Locked reports whether the model is currently probe-locked.
func (c *Coordinator) Locked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locked
}

// LastResult returns the most recently produced result, locked or not.
func (c *Coordinator) LastResult() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult
}

// ProbeOnce runs a single phase with its matching timeout and records
// the result, queueing it instead of publishing it as "last" when the
// model is probe-locked.
func (c *Coordinator) ProbeOnce(ctx context.Context, phase Phase) *Result {
	timeout := QuickProbeTimeout
	if phase == PhaseFull {
		timeout = FullProbeTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	disks, err := c.prober.Probe(runCtx, phase)
	res := &Result{Disks: disks, Err: err, Restricted: phase == PhaseQuick}
	if err != nil {
		logger.Errorf("probe: %s phase failed: %v", phase, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locked {
		c.queuedResult = res
	} else {
		c.lastResult = res
	}
	return res
}

// Probe runs the quick phase followed by the full phase, through the
// coordinator's SingleInstanceTask so a second call cancels the first
// - the normal entry point used by EnsureProbing and by the udev
// debouncer.
func (c *Coordinator) Probe(ctx context.Context) {
	c.task.Start(ctx, func(runCtx context.Context) error {
		if res := c.ProbeOnce(runCtx, PhaseQuick); res.Err != nil {
			return res.Err
		}
		if err := runCtx.Err(); err != nil {
			return err
		}
		c.ProbeOnce(runCtx, PhaseFull)
		return nil
	})
}

// Wait blocks for the in-flight probe (if any) to finish.
func (c *Coordinator) Wait() error { return c.task.Wait() }
