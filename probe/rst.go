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
	"path/filepath"
	"strings"

	"github.com/canonical/guided-storage-planner/internal/executil"
)

// SysfsReader reads a sysfs attribute file's contents (trimmed), for
// testability in place of a direct os.ReadFile call.
type SysfsReader func(path string) (string, error)

// HasRemappedNVMe reports whether any NVMe namespace on the system is
// being presented through Intel Rapid Storage Technology's (RST) "VMD"
// PCI remapping, mirroring has_rst_GET: a remapped namespace shows up
// under /sys/class/nvme/*/device/ with a vendor-device pair of
// 8086:9a0b (or one of the other VMD root port ids) on the remapping
// bridge rather than on the namespace's own controller.
func HasRemappedNVMe(glob executil.Globber, read SysfsReader) (bool, error) {
	devices, err := glob("/sys/class/nvme/*")
	if err != nil {
		return false, err
	}
	for _, dev := range devices {
		vendor, err := read(filepath.Join(dev, "device", "vendor"))
		if err != nil {
			continue
		}
		device, err := read(filepath.Join(dev, "device", "device"))
		if err != nil {
			continue
		}
		if isVMDRootPort(vendor, device) {
			return true, nil
		}
	}
	return false, nil
}

var vmdRootPortIDs = map[string]bool{
	"0x9a0b": true, // Tiger Lake-LP VMD
	"0x467f": true, // Alder Lake-P VMD
	"0x7d0b": true, // Alder Lake VMD
}

func isVMDRootPort(vendor, device string) bool {
	return strings.TrimSpace(vendor) == "0x8086" && vmdRootPortIDs[strings.TrimSpace(device)]
}
