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

// Package probe is the Probe Coordinator (C6): it runs the two-phase
// storage probe (a cheap pass and, on top of it, a slower
// capability-heavy pass), debounces udev churn so a burst of hotplug
// events triggers one re-probe instead of a dozen, and enforces the
// single-flight/"queue the latest, drop the rest" scheduling policy
// every entry point into probing needs.
package probe

import (
	"context"
	"sync"

	"gopkg.in/tomb.v2"
)

// SingleInstanceTask runs at most one instance of a unit of work at a
// time. A Start call while a previous run is still in flight cancels
// that run and waits for it to unwind before starting the new one -
// the cooperative single-threaded scheduling model described in §5:
// callers never block each other indefinitely, they just wait for the
// in-flight run to notice its context was cancelled.
type SingleInstanceTask struct {
	mu   sync.Mutex
	t    *tomb.Tomb
	stop context.CancelFunc
}

// Start cancels any run already in flight, waits for it to finish, and
// launches fn as the new run under a fresh tomb.
func (si *SingleInstanceTask) Start(ctx context.Context, fn func(context.Context) error) {
	si.mu.Lock()
	defer si.mu.Unlock()

	if si.t != nil {
		si.stop()
		_ = si.t.Wait()
	}

	runCtx, cancel := context.WithCancel(ctx)
	si.stop = cancel
	si.t = &tomb.Tomb{}
	si.t.Go(func() error {
		return fn(runCtx)
	})
}

// Wait blocks until the current run (if any) completes, returning its
// error.
func (si *SingleInstanceTask) Wait() error {
	si.mu.Lock()
	t := si.t
	si.mu.Unlock()
	if t == nil {
		return nil
	}
	return t.Wait()
}

// Cancel stops the current run without starting a replacement.
func (si *SingleInstanceTask) Cancel() {
	si.mu.Lock()
	defer si.mu.Unlock()
	if si.stop != nil {
		si.stop()
	}
}
