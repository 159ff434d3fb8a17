//go:build linux || darwin

package handler

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// diskUsage returns the used fraction of the filesystem holding path.
func diskUsage(path string) (float64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	total := float64(st.Blocks) * float64(st.Bsize)
	if total == 0 {
		return 0, nil
	}
	free := float64(st.Bavail) * float64(st.Bsize)
	return (total - free) / total, nil
}
