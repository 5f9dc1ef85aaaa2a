// Package recovery reconciles the primary and secondary stores once at
// process start, before the sequencer loop accepts traffic. The primary
// store is always the source of truth; the secondary store is a derived
// index that recovery brings back into sync with it.
package recovery

import (
	"errors"
	"fmt"
	"time"

	"github.com/Zelana-Labs/zksvm-v2/internal/storage"
)

// ErrSecondaryAheadOfPrimary is an InvariantViolation: the secondary store
// has recorded batches the primary store has no record of. The primary is
// authoritative, so this can only mean the secondary or primary was
// tampered with or corrupted out of band. The process must refuse to
// start.
var ErrSecondaryAheadOfPrimary = errors.New("recovery: secondary store is ahead of primary store")

// Reconcile compares the high-water mark of both stores and replays any
// primary batches missing from the secondary index. It returns
// ErrSecondaryAheadOfPrimary, wrapped with the observed ids, if the
// secondary store is ahead.
func Reconcile(store *storage.Storage) error {
	maxKV, kvOK, err := store.MaxPrimaryBatchID()
	if err != nil {
		return fmt.Errorf("recovery: read primary high-water mark: %w", err)
	}
	maxSQL, sqlOK, err := store.MaxSecondaryBatchID()
	if err != nil {
		return fmt.Errorf("recovery: read secondary high-water mark: %w", err)
	}

	var kvID, sqlID uint64
	if kvOK {
		kvID = maxKV
	}
	if sqlOK {
		sqlID = maxSQL
	}

	switch {
	case !kvOK && !sqlOK:
		return nil
	case kvID > sqlID:
		return replayMissing(store, sqlID, kvOK, sqlOK, kvID)
	case kvID < sqlID:
		return fmt.Errorf("%w: primary=%d secondary=%d", ErrSecondaryAheadOfPrimary, kvID, sqlID)
	default:
		if !kvOK && sqlOK {
			// primary has nothing at all but secondary has rows: ahead.
			return fmt.Errorf("%w: primary=empty secondary=%d", ErrSecondaryAheadOfPrimary, sqlID)
		}
		return nil
	}
}

// replayMissing inserts secondary rows for every primary batch id from
// from+1 through to, inclusive. When the secondary store has never been written to
// (!sqlOK), from is treated as 0 so the full primary history is replayed.
func replayMissing(store *storage.Storage, from uint64, kvOK, sqlOK bool, to uint64) error {
	if !kvOK {
		return nil
	}
	start := from
	if !sqlOK {
		start = 0
	}

	for id := start + 1; id <= to; id++ {
		header, err := store.GetBatch(id)
		if err != nil {
			return fmt.Errorf("recovery: read primary batch %d: %w", id, err)
		}
		committedAt := time.Now().UTC().Format(time.RFC3339)
		if err := store.InsertOrReplaceBatch(id, header.NewRoot, committedAt); err != nil {
			return fmt.Errorf("recovery: replay batch %d into secondary: %w", id, err)
		}
	}
	return nil
}
