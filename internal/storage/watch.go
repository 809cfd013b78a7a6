package storage

import (
	"context"

	"attendbot/internal/runtime/fswatch"
	logx "attendbot/pkg/logx"
)

// WatchLeaves calls onChange whenever the store's backing file is edited
// outside the process. It returns immediately for stores without a file.
func WatchLeaves(ctx context.Context, st Store, log logx.Logger, onChange func()) error {
	if st == nil || st.Path() == "" {
		return nil
	}
	return fswatch.Watch(ctx, st.Path(), fswatch.Options{Name: "leaves"}, log, onChange)
}
