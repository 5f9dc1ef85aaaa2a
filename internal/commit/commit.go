// Package commit implements the two-phase durable write described in
// spec.md §4.4: one atomic primary-store transaction covering every
// mutation a sealed batch produces, followed by a best-effort (and
// explicitly non-atomic) secondary-store index insert. Package recovery
// closes the gap the second step can leave behind.
package commit

import (
	"fmt"
	"time"

	"github.com/Zelana-Labs/zksvm-v2/internal/storage"
	"github.com/Zelana-Labs/zksvm-v2/internal/types"
	bolt "go.etcd.io/bbolt"
)

// Engine applies sealed batches to both backing stores.
type Engine struct {
	store *storage.Storage
}

// New builds a commit engine writing through store.
func New(store *storage.Storage) *Engine {
	return &Engine{store: store}
}

// be64 encodes v as 8 big-endian bytes.
func be64(v uint64) [8]byte {
	var b [8]byte
	b[0] = byte(v >> 56)
	b[1] = byte(v >> 48)
	b[2] = byte(v >> 40)
	b[3] = byte(v >> 32)
	b[4] = byte(v >> 24)
	b[5] = byte(v >> 16)
	b[6] = byte(v >> 8)
	b[7] = byte(v)
	return b
}

// Commit durably writes one sealed batch: the account write set, every
// committed transaction plus its two secondary-index entries, and the
// batch header, all in a single bbolt transaction (sync on commit), then
// records the batch in the secondary store.
//
// now is supplied by the caller rather than sampled internally so that
// tests can control timestamps deterministically; production callers pass
// time.Now.
func (e *Engine) Commit(header types.BlockHeader, writeSet map[types.Pubkey]types.Account, committedTxs []types.Transaction, now func() time.Time) error {
	err := e.store.KV().Update(func(tx *bolt.Tx) error {
		accounts := tx.Bucket(storage.BucketAccounts)
		for pk, acc := range writeSet {
			if err := accounts.Put(pk[:], types.EncodeAccount(acc)); err != nil {
				return fmt.Errorf("put account: %w", err)
			}
		}

		txs := tx.Bucket(storage.BucketTxs)
		txByTime := tx.Bucket(storage.BucketTxByTime)
		txBySender := tx.Bucket(storage.BucketTxBySender)

		var lastTS [8]byte
		for i, t := range committedTxs {
			ts := be64(uint64(now().UnixNano()))
			// Non-decreasing within the batch: if the clock produced an
			// earlier or equal value than the previous tx, the previous
			// tx's timestamp is reused, so timestamps never go backwards in
			// emission order even under coarse clock resolution. Equal
			// timestamps across distinct txs are permitted; ties are then
			// broken by signature, which bbolt's key ordering does for free
			// since signature is the key's suffix.
			if i > 0 && lessOrEqual(ts, lastTS) {
				ts = lastTS
			}
			lastTS = ts

			if err := txs.Put(t.Signature[:], types.EncodeTransaction(t)); err != nil {
				return fmt.Errorf("put tx: %w", err)
			}

			timeKey := append(append([]byte{}, ts[:]...), t.Signature[:]...)
			if err := txByTime.Put(timeKey, nil); err != nil {
				return fmt.Errorf("put tx_by_time: %w", err)
			}

			senderKey := append(append(append([]byte{}, t.Sender[:]...), ts[:]...), t.Signature[:]...)
			if err := txBySender.Put(senderKey, nil); err != nil {
				return fmt.Errorf("put tx_by_sender: %w", err)
			}
		}

		headerBytes := header.ToBytes()
		if err := tx.Bucket(storage.BucketBatches).Put(types.BatchIDKey(header.BatchID), headerBytes[:]); err != nil {
			return fmt.Errorf("put batch header: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("commit: primary write batch: %w", err)
	}

	committedAt := now().UTC().Format(time.RFC3339)
	if err := e.store.InsertOrReplaceBatch(header.BatchID, header.NewRoot, committedAt); err != nil {
		return fmt.Errorf("commit: secondary insert: %w", err)
	}

	return nil
}

func lessOrEqual(a, b [8]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return true
}
