package storage

import (
	"errors"
	"fmt"
	"os"
)

// pruneSnapshots removes every snapshot after the first keep entries.
// infos must be sorted newest first. It returns the names it deleted.
func pruneSnapshots(infos []SnapshotInfo, keep int) ([]string, error) {
	if len(infos) <= keep {
		return nil, nil
	}
	var removed []string
	var errs []error
	for _, info := range infos[keep:] {
		if err := os.Remove(info.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("pruning %s: %w", info.Name, err))
			continue
		}
		removed = append(removed, info.Name)
	}
	return removed, errors.Join(errs...)
}
