package services

import (
	"context"
	"fmt"
)

// maxOrderQuery is the read any order assignment is derived from.
type maxOrderQuery func(ctx context.Context, parentID string) (int, error)

// nextOrder returns max(existing order values)+1 for a parent, or 1 when the
// parent has no children yet. Applied uniformly to stages, tasks, steps, and
// elements. A read failure propagates to the caller; there is no retry.
func nextOrder(ctx context.Context, query maxOrderQuery, parentID string) (int, error) {
	maxOrder, err := query(ctx, parentID)
	if err != nil {
		return 0, fmt.Errorf("failed to read max order for parent %s: %w", parentID, err)
	}

	return maxOrder + 1, nil
}
