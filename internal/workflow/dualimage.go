package workflow

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/netlab-io/fwutil-harness/internal/descriptor"
	"github.com/netlab-io/fwutil-harness/internal/dut"
	"github.com/netlab-io/fwutil-harness/internal/image"
	"github.com/netlab-io/fwutil-harness/internal/reconcile"
	"github.com/netlab-io/fwutil-harness/pkg/log"
)

// FinalImage records which installed image the device ended up booted into
// after a dual-image run.
type FinalImage string

const (
	EndedOnCurrent FinalImage = "current"
	EndedOnNext    FinalImage = "next"
)

// DualImage prepares the DUT for `fwutil update --image=next`: both installed
// images need a descriptor pointing at the staged payload, and teardown must
// put both descriptors back no matter which image the device ends on.
type DualImage struct {
	device       dut.Client
	images       *image.Manager
	orchestrator *Orchestrator
	platform     string
	localDir     string
	log          *log.PrefixLogger

	original      string
	next          string
	currentBackup *descriptor.Backup
	nextBackup    *descriptor.Backup
}

func NewDualImage(device dut.Client, images *image.Manager, orchestrator *Orchestrator, platform, localDir string, logger *log.PrefixLogger) *DualImage {
	return &DualImage{
		device:       device,
		images:       images,
		orchestrator: orchestrator,
		platform:     platform,
		localDir:     localDir,
		log:          logger,
	}
}

// overlayDescriptorPath is where a non-booted image's descriptor lives: the
// image's writable overlay under /host.
func overlayDescriptorPath(imageName, platform string) string {
	dir := "image-" + strings.TrimPrefix(imageName, "SONiC-OS-")
	return path.Join("/host", dir, "rw", strings.TrimPrefix(descriptor.Path(platform), "/"))
}

// Setup ensures a second image is installed and plants the synthetic
// descriptor on both images. secondImagePath is only consulted when the
// device has a single image installed.
func (d *DualImage) Setup(ctx context.Context, result reconcile.Result, secondImagePath string) error {
	info, err := d.images.List(ctx)
	if err != nil {
		return err
	}
	if _, ok := info.Alternate(); !ok {
		if secondImagePath == "" {
			return fmt.Errorf("device %s has one image installed and no second image is configured", d.device.Host())
		}
		d.log.Infof("Installing second image from %s", secondImagePath)
		if err := d.images.Install(ctx, secondImagePath); err != nil {
			return err
		}
		if info, err = d.images.List(ctx); err != nil {
			return err
		}
	}

	d.original = info.Current
	alternate, ok := info.Alternate()
	if !ok {
		return fmt.Errorf("no alternate image after install on %s", d.device.Host())
	}
	d.next = alternate

	// pin the starting image so an unexpected reboot mid-test lands home
	if err := d.images.SetDefault(ctx, d.original); err != nil {
		return err
	}

	content, err := descriptor.Generate(d.platform, []string{result.Component}, map[string]descriptor.Firmware{
		result.Component: {
			Firmware: StagePath(result),
			Version:  result.VersionToInstall,
		},
	})
	if err != nil {
		return err
	}

	// both backups are taken before either image is touched, so a failed
	// setup never strands a synthetic descriptor on the device
	d.currentBackup, err = descriptor.NewBackupAt(ctx, d.device, descriptor.Path(d.platform),
		filepath.Join(d.localDir, "platform_components_current.json"))
	if err != nil {
		return err
	}
	nextPath := overlayDescriptorPath(d.next, d.platform)
	d.nextBackup, err = descriptor.NewBackupAt(ctx, d.device, nextPath,
		filepath.Join(d.localDir, "platform_components_next.json"))
	if err != nil {
		return err
	}

	if err := descriptor.Push(ctx, d.device, d.platform, content); err != nil {
		return err
	}
	if err := descriptor.PushTo(ctx, d.device, nextPath, content); err != nil {
		return err
	}
	return nil
}

// Run drives the update against the next image. fwutil reboots into the next
// image itself as part of --image=next, so the completion action plus
// readiness wait already happen inside the orchestrator.
func (d *DualImage) Run(ctx context.Context, result reconcile.Result) error {
	if err := d.images.SetNextBoot(ctx, d.next); err != nil {
		return err
	}
	return d.orchestrator.Run(ctx, result, ModeUpdateNext)
}

// Final reports which image the device is currently booted into relative to
// the image set recorded at Setup.
func (d *DualImage) Final(ctx context.Context) (FinalImage, error) {
	info, err := d.images.List(ctx)
	if err != nil {
		return "", err
	}
	switch info.Current {
	case d.original:
		return EndedOnCurrent, nil
	case d.next:
		return EndedOnNext, nil
	default:
		return "", fmt.Errorf("device booted unexpected image %q", info.Current)
	}
}

// Teardown restores both images' descriptors and leaves the device booted
// into the image it started on. Each image's live descriptor path is only
// writable while that image is booted, so teardown reboots as needed.
func (d *DualImage) Teardown(ctx context.Context) error {
	if d.currentBackup == nil && d.nextBackup == nil {
		return nil
	}

	final, err := d.Final(ctx)
	if err != nil {
		return err
	}

	switch final {
	case EndedOnNext:
		// restore the booted (next) image first, then get back home
		if d.nextBackup != nil {
			d.nextBackup.RemotePath = descriptor.Path(d.platform)
			if err := d.nextBackup.Restore(ctx); err != nil {
				return err
			}
		}
		if err := d.rebootInto(ctx, d.original); err != nil {
			return err
		}
		if d.currentBackup != nil {
			d.currentBackup.RemotePath = descriptor.Path(d.platform)
			if err := d.currentBackup.Restore(ctx); err != nil {
				return err
			}
		}
	case EndedOnCurrent:
		if d.currentBackup != nil {
			if err := d.currentBackup.Restore(ctx); err != nil {
				return err
			}
		}
		if d.nextBackup != nil {
			d.nextBackup.RemotePath = overlayDescriptorPath(d.next, d.platform)
			if err := d.nextBackup.Restore(ctx); err != nil {
				return err
			}
		}
	}

	if err := d.images.SetDefault(ctx, d.original); err != nil {
		return err
	}
	return nil
}

func (d *DualImage) rebootInto(ctx context.Context, imageName string) error {
	if err := d.images.SetNextBoot(ctx, imageName); err != nil {
		return err
	}
	return d.orchestrator.ColdReboot(ctx)
}
