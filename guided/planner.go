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

package guided

import (
	"fmt"

	"github.com/canonical/guided-storage-planner/boot"
	"github.com/canonical/guided-storage-planner/capability"
	"github.com/canonical/guided-storage-planner/coreboot"
	"github.com/canonical/guided-storage-planner/geometry"
	"github.com/canonical/guided-storage-planner/quantity"
	"github.com/canonical/guided-storage-planner/sizes"
	"github.com/canonical/guided-storage-planner/storage"
)

// Planner drives the model to realize a Choice, the way
// FilesystemController.guided()/start_guided() do via
// functools.singledispatchmethod, here expressed as an explicit type
// switch over the sealed Target set.
type Planner struct {
	Model *storage.Model
}

// New builds a Planner around an existing model.
func New(m *storage.Model) *Planner {
	return &Planner{Model: m}
}

// Guided applies choice to the model, dispatching on the concrete type
// of choice.Target, and returns the root partition/volume the install
// should be written to. A core-boot capability is reformat-only and
// bypasses the gap-based engines entirely, delegating to the Core-Boot
// Reconciler instead.
func (p *Planner) Guided(choice Choice) (storage.Volume, error) {
	if choice.NeedsPassword() && (choice.Password == nil || *choice.Password == "") {
		return nil, ErrPasswordRequired
	}

	p.Model.GuidedConfiguration = choice

	if choice.Capability.IsCoreBoot() {
		return p.guidedCoreBoot(choice)
	}

	gap, disk, err := p.resolveTarget(choice.Target)
	if err != nil {
		return nil, err
	}

	if choice.Bootloader != "" && boot.NeedsBootloaderPartition(choice.Bootloader, disk) {
		if !boot.CanBeBootDevice(choice.Bootloader, disk, nil, false) {
			return nil, ErrNoRoomForBootPartition
		}
		if _, err := boot.Mutate(p.Model, choice.Bootloader, disk, nil); err != nil {
			return nil, err
		}
		gap, err = gapAtOrAfter(disk, gap.Offset)
		if err != nil {
			return nil, err
		}
	}

	if choice.ResetPartitionSize > 0 {
		resetGap, rest := gap.Split(choice.ResetPartitionSize)
		resetPart, err := p.Model.CreatePartition(disk, resetGap, storage.PartitionSpec{FSType: "fat32", Flag: storage.FlagMSFTRes})
		if err != nil {
			return nil, err
		}
		p.Model.ResetPartition = resetPart
		if rest == nil {
			return nil, ErrNoUsableSpace
		}
		gap = *rest
		if choice.ResetPartitionOnly {
			for _, mnt := range p.Model.AllMounts() {
				_ = p.Model.DeleteMount(mnt)
			}
			return nil, nil
		}
	}

	switch choice.Capability {
	case capability.CapDirect:
		return p.guidedDirect(disk, gap)
	case capability.CapLVM, capability.CapLVMLUKS:
		return p.guidedLVM(disk, gap, choice)
	case capability.CapZFS, capability.CapZFSLUKSKeystore:
		return p.guidedZFS(disk, gap, choice)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCapability, choice.Capability)
	}
}

// guidedCoreBoot is the core-boot-classic branch of Guided: the target
// must be a full reformat (the gadget dictates the whole disk layout,
// there's no such thing as "use this gap" for it), use_tpm is derived
// straight from the chosen capability, and the actual partition work is
// the Core-Boot Reconciler's job.
func (p *Planner) guidedCoreBoot(choice Choice) (storage.Volume, error) {
	reformat, ok := choice.Target.(Reformat)
	if !ok {
		return nil, ErrCoreBootRequiresReformat
	}
	useTPM := choice.Capability == capability.CapCoreBootEncrypted
	p.Model.CoreBootUseTPM = useTPM
	if _, err := coreboot.Reconcile(p.Model, reformat.Disk, choice.CoreBootStructures); err != nil {
		return nil, err
	}
	return nil, nil
}

// resolveTarget turns a Target into a concrete gap to build the new
// layout in, reformatting or resizing first as needed.
func (p *Planner) resolveTarget(t Target) (geometry.Gap, *storage.Disk, error) {
	switch target := t.(type) {
	case Reformat:
		p.Model.Reformat(target.Disk, geometry.SchemaGPT)
		gaps := geometry.Gaps(target.Disk)
		if len(gaps) == 0 {
			return geometry.Gap{}, nil, ErrNoUsableSpace
		}
		return gaps[0], target.Disk, nil
	case UseGap:
		if refreshed := target.Gap.Refresh(); refreshed != nil {
			return *refreshed, target.Disk, nil
		}
		return target.Gap, target.Disk, nil
	case Resize:
		target.Partition.Size_ = target.NewSize
		target.Partition.Resize = true
		after := geometry.After(target.Disk, target.Partition.Offset_)
		if after == nil {
			return geometry.Gap{}, nil, ErrNoUsableSpace
		}
		return *after, target.Disk, nil
	case Manual:
		return geometry.Gap{}, nil, ErrManualNotGuided
	default:
		return geometry.Gap{}, nil, fmt.Errorf("%w: %T", ErrUnknownTarget, t)
	}
}

// gapAtOrAfter returns the first remaining gap on disk starting at or
// after minOffset, used to re-derive the working gap once the Boot
// Planner has carved its own partition out of the front of it.
func gapAtOrAfter(disk *storage.Disk, minOffset quantity.Offset) (geometry.Gap, error) {
	for _, g := range geometry.Gaps(disk) {
		if g.Offset >= minOffset {
			return g, nil
		}
	}
	return geometry.Gap{}, ErrNoUsableSpace
}

// guidedDirect lays a plain root partition directly in gap, the
// simplest of the three layout engines.
func (p *Planner) guidedDirect(disk *storage.Disk, gap geometry.Gap) (storage.Volume, error) {
	part, err := p.Model.CreatePartition(disk, gap, storage.PartitionSpec{FSType: "ext4", Mount: "/"})
	if err != nil {
		return nil, err
	}
	return part, nil
}

// guidedLVM carves a /boot partition off the front of gap, puts the
// rest into a new volume group (LUKS-encrypted when choice.Capability
// is CapLVMLUKS), and creates a single root LV scaled per policy.
func (p *Planner) guidedLVM(disk *storage.Disk, gap geometry.Gap, choice Choice) (storage.Volume, error) {
	bootGap, rest := gap.Split(sizes.GetBootfsSize())
	if _, err := p.Model.CreatePartition(disk, bootGap, storage.PartitionSpec{FSType: "ext4", Mount: "/boot"}); err != nil {
		return nil, err
	}
	if rest == nil {
		return nil, ErrNoUsableSpace
	}

	pvPart, err := p.Model.CreatePartition(disk, *rest, storage.PartitionSpec{})
	if err != nil {
		return nil, err
	}

	base := choice.VGName
	if base == "" {
		base = "ubuntu-vg"
	}
	var passphrase *string
	if choice.Capability == capability.CapLVMLUKS {
		passphrase = choice.Password
	}
	vg, err := p.Model.CreateVolumeGroup(base, []storage.Volume{pvPart}, passphrase, choice.RecoveryKey)
	if err != nil {
		return nil, err
	}

	rootSize := vg.VolumeSize()
	if choice.SizingPolicy != SizingPolicyAll {
		rootSize = sizes.ScaledRootfsSize(rootSize)
	}
	return p.Model.CreateLogicalVolume(vg, "ubuntu-lv", rootSize, "ext4", "/")
}

// zfsDatasetNames is the fixed dataset tree every guided ZFS root pool
// gets under ROOT/ubuntu_<uuid>, beyond the root dataset itself -
// canmount "off" for the two placeholder parents, default (inherited)
// canmount for every leaf.
var zfsDatasetNames = []struct {
	suffix   string
	canmount string
}{
	{"/var", "off"},
	{"/var/lib", ""},
	{"/var/lib/AccountsService", ""},
	{"/var/lib/apt", ""},
	{"/var/lib/dpkg", ""},
	{"/var/lib/NetworkManager", ""},
	{"/srv", ""},
	{"/usr", "off"},
	{"/usr/local", ""},
	{"/var/games", ""},
	{"/var/log", ""},
	{"/var/mail", ""},
	{"/var/snap", ""},
	{"/var/spool", ""},
	{"/var/www", ""},
}

// guidedZFS carves a small unencrypted bpool off the front of gap for
// /boot, an optional swap (or cryptoswap, if encrypted) partition sized
// against whatever's left once the install's own minimum size is
// accounted for, and puts the remainder into an rpool holding the full
// ROOT/ubuntu_<uuid> dataset tree and a USERDATA pair of per-user
// datasets, following the original's zfs guided layout.
func (p *Planner) guidedZFS(disk *storage.Disk, gap geometry.Gap, choice Choice) (storage.Volume, error) {
	align := disk.Alignment()

	bootGap, rest := gap.Split(sizes.GetBootfsSize())
	bootPart, err := p.Model.CreatePartition(disk, bootGap, storage.PartitionSpec{})
	if err != nil {
		return nil, err
	}
	if rest == nil {
		return nil, ErrNoUsableSpace
	}
	gapRest := *rest

	encrypted := choice.Capability == capability.CapZFSLUKSKeystore && choice.Password != nil

	avail := gapRest.Size - choice.MinInstallSize
	swapSize := geometry.AlignDownSize(sizes.SuggestedSwapsize(avail), align.PartAlign)
	if swapSize > 0 {
		swapGap, afterSwap := gapRest.Split(swapSize)
		if encrypted {
			swapPart, err := p.Model.CreatePartition(disk, swapGap, storage.PartitionSpec{})
			if err != nil {
				return nil, err
			}
			p.Model.CreateCryptoswap(swapPart)
		} else if _, err := p.Model.CreatePartition(disk, swapGap, storage.PartitionSpec{FSType: "swap"}); err != nil {
			return nil, err
		}
		if afterSwap == nil {
			return nil, ErrNoUsableSpace
		}
		gapRest = *afterSwap
	}

	rootPart, err := p.Model.CreatePartition(disk, gapRest, storage.PartitionSpec{})
	if err != nil {
		return nil, err
	}

	uuid := storage.GenZsysUUID()

	bpool := p.Model.CreateZPool(bootPart, "bpool", "/boot", true, "off", "", nil)
	bpool.CreateZFS("BOOT", "off", "none")
	bpool.CreateZFS("BOOT/ubuntu_"+uuid, "", "/boot")

	var encryptionStyle string
	var key *string
	if encrypted {
		encryptionStyle = "luks_keystore"
		key = choice.Password
	}
	rpool := p.Model.CreateZPool(rootPart, "rpool", "/", false, "off", encryptionStyle, key)
	rpool.CreateZFS("ROOT", "off", "none")
	root := rpool.CreateZFS("ROOT/ubuntu_"+uuid, "", "/")
	for _, ds := range zfsDatasetNames {
		rpool.CreateZFS("ROOT/ubuntu_"+uuid+ds.suffix, ds.canmount, "")
	}

	userdataUUID := storage.GenZsysUUID()
	rpool.CreateZFS("USERDATA", "off", "none")
	rpool.CreateZFS("USERDATA/root_"+userdataUUID, "", "/root")
	rpool.CreateZFS("USERDATA/home_"+userdataUUID, "", "/home")

	return zfsDatasetVolume{root}, nil
}

// zfsDatasetVolume adapts a ZFSDataset (which carries no size of its
// own - its pool does) to storage.Volume for callers that just need an
// Action-shaped handle to the new root.
type zfsDatasetVolume struct {
	*storage.ZFSDataset
}

func (zfsDatasetVolume) VolumeSize() quantity.Size { return 0 }
