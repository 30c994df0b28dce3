package descriptor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/netlab-io/fwutil-harness/internal/dut"
)

// Backup is a fetched copy of the device's descriptor. The descriptor is
// externally owned state: every test that overwrites it takes a Backup first
// and restores it in teardown, whatever the test outcome.
type Backup struct {
	RemotePath string
	LocalPath  string

	device dut.Client
}

// NewBackup fetches the platform's descriptor into localDir.
func NewBackup(ctx context.Context, device dut.Client, platform, localDir string) (*Backup, error) {
	return NewBackupAt(ctx, device, Path(platform), filepath.Join(localDir, "platform_components_backup.json"))
}

// NewBackupAt fetches the descriptor at an arbitrary remote path, for images
// mounted somewhere other than the live root.
func NewBackupAt(ctx context.Context, device dut.Client, remotePath, localPath string) (*Backup, error) {
	b := &Backup{
		RemotePath: remotePath,
		LocalPath:  localPath,
		device:     device,
	}
	if err := device.Fetch(ctx, b.RemotePath, b.LocalPath); err != nil {
		return nil, fmt.Errorf("backing up %s: %w", b.RemotePath, err)
	}
	return b, nil
}

// Restore copies the backed-up descriptor back onto the device.
func (b *Backup) Restore(ctx context.Context) error {
	if err := b.device.Copy(ctx, b.LocalPath, b.RemotePath); err != nil {
		return fmt.Errorf("restoring %s: %w", b.RemotePath, err)
	}
	return nil
}

// Bytes returns the backed-up content, for byte-identical comparison against
// the device's post-test state.
func (b *Backup) Bytes() ([]byte, error) {
	return os.ReadFile(b.LocalPath)
}

// Push overwrites the platform's descriptor on the device with content.
func Push(ctx context.Context, device dut.Client, platform string, content []byte) error {
	return PushTo(ctx, device, Path(platform), content)
}

// PushTo writes content to an arbitrary descriptor path on the device.
func PushTo(ctx context.Context, device dut.Client, remotePath string, content []byte) error {
	local, err := os.CreateTemp("", "platform_components_*.json")
	if err != nil {
		return err
	}
	defer os.Remove(local.Name())

	if _, err := local.Write(content); err != nil {
		local.Close()
		return err
	}
	if err := local.Close(); err != nil {
		return err
	}
	return device.Copy(ctx, local.Name(), remotePath)
}
