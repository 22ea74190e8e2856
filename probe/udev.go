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
	"time"

	"golang.org/x/sys/unix"

	"github.com/canonical/guided-storage-planner/internal/executil"
	"github.com/canonical/guided-storage-planner/internal/logger"
)

// UdevDebounceWindow is how long the monitor waits for the event queue
// to go quiet, via repeated `udevadm settle -t 0` polls, before it
// considers a burst of hotplug events to be one logical event.
const UdevDebounceWindow = 250 * time.Millisecond

// UdevMonitor listens on the kernel's NETLINK_KOBJECT_UEVENT socket and
// triggers a re-probe once the resulting event burst settles.
type UdevMonitor struct {
	Runner      executil.Runner
	Coordinator *Coordinator

	stopCh chan struct{}
	doneCh chan struct{}
}

// StartMonitor opens the netlink socket and begins watching for block
// device events, in a background goroutine, returning immediately.
// StopMonitor must be called to release the socket.
func (m *UdevMonitor) StartMonitor(ctx context.Context) error {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM, unixNetlinkKobjectUevent)
	if err != nil {
		return err
	}
	sa := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return err
	}

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go func() {
		defer close(m.doneCh)
		defer unix.Close(fd)
		buf := make([]byte, 8192)
		for {
			select {
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			default:
			}
			n, _, err := unix.Recvfrom(fd, buf, 0)
			if err != nil {
				continue
			}
			if n == 0 || !looksLikeBlockEvent(buf[:n]) {
				continue
			}
			m.onEvent(ctx)
		}
	}()
	return nil
}

// unixNetlinkKobjectUevent is NETLINK_KOBJECT_UEVENT (15); named
// locally because golang.org/x/sys/unix does not export it under a
// portable constant on every GOOS this package is built for.
const unixNetlinkKobjectUevent = 15

func looksLikeBlockEvent(msg []byte) bool {
	return containsBytes(msg, []byte("SUBSYSTEM=block"))
}

func containsBytes(haystack, needle []byte) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return true
		}
	}
	return false
}

// onEvent debounces by polling `udevadm settle -t 0` until the queue
// reports idle, then triggers a re-probe - this is ensure_probing's
// "wait for the storm to pass" behavior, generalized out of the
// original's asyncio-specific debounce timer.
func (m *UdevMonitor) onEvent(ctx context.Context) {
	ticker := time.NewTicker(UdevDebounceWindow)
	defer ticker.Stop()
	for i := 0; i < 40; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		idle, err := executil.UdevSettle(ctx, m.Runner)
		if err != nil {
			logger.Errorf("probe: udevadm settle failed: %v", err)
			return
		}
		if idle {
			m.Coordinator.Probe(ctx)
			return
		}
	}
}

// StopMonitor stops the background listener and waits for it to exit.
func (m *UdevMonitor) StopMonitor() {
	if m.stopCh == nil {
		return
	}
	close(m.stopCh)
	<-m.doneCh
}
