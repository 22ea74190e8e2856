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

package externalsystem

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/canonical/guided-storage-planner/internal/logger"
)

// Scope bind-mounts the writable subtree the core-boot system's install
// service expects to find under its own root (/run/mnt/ubuntu-seed and
// friends) before a SETUP_STORAGE_ENCRYPTION call, and always unmounts
// it again on Close - mirroring _pre_shutdown's use as an
// AsyncExitStack entry in the original controller, generalized into a
// plain RAII helper since Go has no equivalent context-manager stack.
type Scope struct {
	mounts []string
}

// OpenScope bind-mounts each of sources[i] at targets[i], in order,
// rolling back everything already mounted if any mount fails.
func OpenScope(sources, targets []string) (*Scope, error) {
	if len(sources) != len(targets) {
		return nil, fmt.Errorf("sources and targets must have the same length")
	}
	s := &Scope{}
	for i := range sources {
		if err := unix.Mount(sources[i], targets[i], "", unix.MS_BIND, ""); err != nil {
			s.Close()
			return nil, fmt.Errorf("bind-mounting %s at %s: %w", sources[i], targets[i], err)
		}
		s.mounts = append(s.mounts, targets[i])
	}
	return s, nil
}

// Close unmounts every bind mount this scope opened, in reverse order,
// logging (but not failing on) any unmount that doesn't succeed - by
// the time Close runs the install either already failed or already
// succeeded, and a stuck unmount shouldn't mask either outcome.
func (s *Scope) Close() {
	for i := len(s.mounts) - 1; i >= 0; i-- {
		if err := unix.Unmount(s.mounts[i], 0); err != nil {
			logger.Errorf("externalsystem: failed to unmount %s: %v", s.mounts[i], err)
		}
	}
	s.mounts = nil
}
