package chain

import (
	"context"
	"fmt"
	"time"
)

type headReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// WaitForConfirmations blocks until the block at minedAt is buried under enough blocks
// to count as `confirmations` confirmations. The mined block itself is the first one.
func WaitForConfirmations(ctx context.Context, heads headReader, minedAt, confirmations uint64, interval time.Duration) error {
	if confirmations <= 1 {
		return nil
	}
	target := minedAt + confirmations - 1

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		head, err := heads.BlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("failed to read block number: %w", err)
		}
		if head >= target {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %d confirmations (head %d, need %d): %w", confirmations, head, target, ctx.Err())
		case <-ticker.C:
		}
	}
}
