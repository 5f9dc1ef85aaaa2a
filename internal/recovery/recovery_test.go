package recovery

import (
	"errors"
	"testing"
	"time"

	"github.com/Zelana-Labs/zksvm-v2/internal/storage"
	"github.com/Zelana-Labs/zksvm-v2/internal/types"
	bolt "go.etcd.io/bbolt"
)

func newTestStore(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.New(&storage.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// putPrimaryBatch writes a batch header directly into the primary store,
// bypassing the commit engine, to simulate batches that were committed to
// the primary store in a prior, possibly crashed, run.
func putPrimaryBatch(t *testing.T, s *storage.Storage, id uint64) types.BlockHeader {
	t.Helper()
	hdr := types.Genesis()
	hdr.BatchID = id
	var root [32]byte
	root[0] = byte(id)
	hdr.NewRoot = root

	err := s.KV().Update(func(tx *bolt.Tx) error {
		b := hdr.ToBytes()
		return tx.Bucket(storage.BucketBatches).Put(types.BatchIDKey(id), b[:])
	})
	if err != nil {
		t.Fatalf("putPrimaryBatch(%d) error = %v", id, err)
	}
	return hdr
}

func TestReconcileNoOpWhenEqual(t *testing.T) {
	s := newTestStore(t)
	hdr := putPrimaryBatch(t, s, 1)
	if err := s.InsertOrReplaceBatch(1, hdr.NewRoot, time.Now().UTC().Format(time.RFC3339)); err != nil {
		t.Fatalf("InsertOrReplaceBatch() error = %v", err)
	}

	if err := Reconcile(s); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
}

func TestReconcileReplaysMissingSecondaryRows(t *testing.T) {
	s := newTestStore(t)

	var headers []types.BlockHeader
	for id := uint64(1); id <= 5; id++ {
		headers = append(headers, putPrimaryBatch(t, s, id))
	}
	for id := uint64(1); id <= 3; id++ {
		if err := s.InsertOrReplaceBatch(id, headers[id-1].NewRoot, time.Now().UTC().Format(time.RFC3339)); err != nil {
			t.Fatalf("InsertOrReplaceBatch(%d) error = %v", id, err)
		}
	}

	if err := Reconcile(s); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	for id := uint64(4); id <= 5; id++ {
		exists, err := s.SecondaryBatchExists(id)
		if err != nil {
			t.Fatalf("SecondaryBatchExists(%d) error = %v", id, err)
		}
		if !exists {
			t.Errorf("expected batch %d to be replayed into secondary store", id)
		}
	}

	maxID, ok, err := s.MaxSecondaryBatchID()
	if err != nil || !ok || maxID != 5 {
		t.Errorf("MaxSecondaryBatchID() = (%d, %v, %v), want (5, true, nil)", maxID, ok, err)
	}
}

func TestReconcileFailsWhenSecondaryAhead(t *testing.T) {
	s := newTestStore(t)
	putPrimaryBatch(t, s, 1)

	var root [32]byte
	root[0] = 9
	if err := s.InsertOrReplaceBatch(1, root, time.Now().UTC().Format(time.RFC3339)); err != nil {
		t.Fatalf("InsertOrReplaceBatch(1) error = %v", err)
	}
	if err := s.InsertOrReplaceBatch(2, root, time.Now().UTC().Format(time.RFC3339)); err != nil {
		t.Fatalf("InsertOrReplaceBatch(2) error = %v", err)
	}

	err := Reconcile(s)
	if !errors.Is(err, ErrSecondaryAheadOfPrimary) {
		t.Fatalf("Reconcile() error = %v, want ErrSecondaryAheadOfPrimary", err)
	}
}

func TestReconcileEmptyChain(t *testing.T) {
	s := newTestStore(t)
	if err := Reconcile(s); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
}
