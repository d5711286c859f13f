// internal/rewards/collaborator.go
package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rewards-strategist/internal/common/metrics"
)

// callCollaborator runs call under timeout and returns as soon as the
// deadline passes even if call ignores its context.
func callCollaborator(ctx context.Context, timeout time.Duration, call func(context.Context) ([]int64, error)) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		ids []int64
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		ids, err := call(ctx)
		ch <- reply{ids: ids, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, r.err)
		}
		return r.ids, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, ctx.Err())
	}
}

// isPermutation reports whether got holds exactly the ids in want.
func isPermutation(want, got []int64) bool {
	if len(want) != len(got) {
		return false
	}
	remaining := make(map[int64]int, len(want))
	for _, id := range want {
		remaining[id]++
	}
	for _, id := range got {
		if remaining[id] == 0 {
			return false
		}
		remaining[id]--
	}
	return true
}

func fallbackReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}

func recordFallback(collaborator, reason string) {
	metrics.CollaboratorFallbacks.WithLabelValues(collaborator, reason).Inc()
}
