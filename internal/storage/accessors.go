package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Zelana-Labs/zksvm-v2/internal/types"
	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned by the Get* accessors when the requested key does
// not exist in the primary store.
var ErrNotFound = errors.New("storage: not found")

// GetAccount looks up a single account by public key.
func (s *Storage) GetAccount(pubkey types.Pubkey) (types.Account, error) {
	var acc types.Account
	err := s.kv.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(BucketAccounts).Get(pubkey[:])
		if raw == nil {
			return ErrNotFound
		}
		decoded, err := types.DecodeAccount(raw)
		if err != nil {
			return err
		}
		acc = decoded
		return nil
	})
	return acc, err
}

// GetTransaction looks up a committed transaction by its signature.
func (s *Storage) GetTransaction(sig types.Signature) (types.Transaction, error) {
	var tx types.Transaction
	err := s.kv.View(func(btx *bolt.Tx) error {
		raw := btx.Bucket(BucketTxs).Get(sig[:])
		if raw == nil {
			return ErrNotFound
		}
		decoded, err := types.DecodeTransaction(raw)
		if err != nil {
			return err
		}
		tx = decoded
		return nil
	})
	return tx, err
}

// GetBatch looks up a sealed batch's header by batch id.
func (s *Storage) GetBatch(batchID uint64) (types.BlockHeader, error) {
	var hdr types.BlockHeader
	err := s.kv.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(BucketBatches).Get(types.BatchIDKey(batchID))
		if raw == nil {
			return ErrNotFound
		}
		decoded, err := types.HeaderFromBytes(raw)
		if err != nil {
			return err
		}
		hdr = decoded
		return nil
	})
	return hdr, err
}

// GetTip returns the header of the most recently sealed batch. If the
// primary store holds no batches at all (not even genesis), it returns
// ErrNotFound — callers in the sequencer loop use this to detect a
// brand-new, unbootstrapped chain.
func (s *Storage) GetTip() (types.BlockHeader, error) {
	var hdr types.BlockHeader
	err := s.kv.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(BucketBatches).Cursor()
		k, v := c.Last()
		if k == nil {
			return ErrNotFound
		}
		decoded, err := types.HeaderFromBytes(v)
		if err != nil {
			return err
		}
		hdr = decoded
		return nil
	})
	return hdr, err
}

// MaxPrimaryBatchID returns the highest batch id recorded in the primary
// store's batches column family, and false if none exist yet. Used by the
// startup reconciler to compare against the secondary store's high-water
// mark.
func (s *Storage) MaxPrimaryBatchID() (uint64, bool, error) {
	hdr, err := s.GetTip()
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return hdr.BatchID, true, nil
}

// MaxSecondaryBatchID returns MAX(id) from the secondary batches table, and
// false if the table is empty.
func (s *Storage) MaxSecondaryBatchID() (uint64, bool, error) {
	var id sql.NullInt64
	row := s.sql.QueryRow(`SELECT MAX(id) FROM batches`)
	if err := row.Scan(&id); err != nil {
		return 0, false, fmt.Errorf("storage: query max secondary batch id: %w", err)
	}
	if !id.Valid {
		return 0, false, nil
	}
	return uint64(id.Int64), true, nil
}

// InsertOrReplaceBatch writes (or overwrites) one row of the secondary
// batches index. It is intentionally NOT part of the atomic primary
// transaction — see commit.Engine and §4.4's two-phase write.
func (s *Storage) InsertOrReplaceBatch(batchID uint64, newRoot [32]byte, committedAt string) error {
	_, err := s.sql.Exec(
		`INSERT OR REPLACE INTO batches (id, new_root, committed_at, proof_status) VALUES (?, ?, ?, 'Pending')`,
		batchID, newRoot[:], committedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: insert secondary batch row: %w", err)
	}
	return nil
}

// SecondaryBatchExists reports whether the secondary store already has a
// row for the given batch id.
func (s *Storage) SecondaryBatchExists(batchID uint64) (bool, error) {
	var exists int
	row := s.sql.QueryRow(`SELECT 1 FROM batches WHERE id = ?`, batchID)
	if err := row.Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("storage: check secondary batch row: %w", err)
	}
	return true, nil
}

// AllAccounts returns every account in the primary store's accounts column
// family, in ascending Pubkey order (bbolt's natural key order). The
// sequencer merges this with a batch's write set to compute the next
// state commitment — see spec.md §4.5 step 3.
func (s *Storage) AllAccounts() ([]types.Pubkey, map[types.Pubkey]types.Account, error) {
	var order []types.Pubkey
	accounts := make(map[types.Pubkey]types.Account)
	err := s.kv.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(BucketAccounts).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var pk types.Pubkey
			copy(pk[:], k)
			acc, err := types.DecodeAccount(v)
			if err != nil {
				return err
			}
			order = append(order, pk)
			accounts[pk] = acc
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, accounts, nil
}

// AllPrimaryBatchIDs returns every batch id present in the primary store's
// batches column family, in ascending order.
func (s *Storage) AllPrimaryBatchIDs() ([]uint64, error) {
	var ids []uint64
	err := s.kv.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(BucketBatches).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			hdr, err := types.HeaderFromBytes(v)
			if err != nil {
				return err
			}
			ids = append(ids, hdr.BatchID)
		}
		return nil
	})
	return ids, err
}
