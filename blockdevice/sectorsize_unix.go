//go:build linux

package blockdevice

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// probeLogicalSectorSize queries the kernel for a block device's logical
// sector size via the BLKSSZGET ioctl, exactly as the teacher's
// diskfs.getSectorSizes does for disk.Disk. It only applies to real block
// devices; regular image files fall back to the caller-supplied size.
func probeLogicalSectorSize(f *os.File) (int, error) {
	fd := int(f.Fd())
	sectorSize, err := unix.IoctlGetInt(fd, unix.BLKSSZGET)
	if err != nil {
		return 0, fmt.Errorf("blockdevice: BLKSSZGET ioctl: %w", err)
	}
	return sectorSize, nil
}
