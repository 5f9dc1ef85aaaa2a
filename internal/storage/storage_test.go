package storage

import (
	"testing"

	"github.com/Zelana-Labs/zksvm-v2/internal/types"
	bolt "go.etcd.io/bbolt"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(&Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewCreatesAllBuckets(t *testing.T) {
	s := newTestStorage(t)
	err := s.kv.View(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if tx.Bucket(name) == nil {
				t.Errorf("bucket %q was not created", name)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.GetAccount(types.Pubkey{9}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetTipEmptyChain(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.GetTip(); err != ErrNotFound {
		t.Errorf("expected ErrNotFound on empty chain, got %v", err)
	}
	if _, ok, err := s.MaxPrimaryBatchID(); err != nil || ok {
		t.Errorf("expected (0, false, nil), got (_, %v, %v)", ok, err)
	}
}

func TestSecondaryBatchRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	exists, err := s.SecondaryBatchExists(1)
	if err != nil {
		t.Fatalf("SecondaryBatchExists() error = %v", err)
	}
	if exists {
		t.Fatalf("expected batch 1 to not exist yet")
	}

	var root [32]byte
	root[0] = 0xAB
	if err := s.InsertOrReplaceBatch(1, root, "2026-01-01T00:00:00Z"); err != nil {
		t.Fatalf("InsertOrReplaceBatch() error = %v", err)
	}

	exists, err = s.SecondaryBatchExists(1)
	if err != nil {
		t.Fatalf("SecondaryBatchExists() error = %v", err)
	}
	if !exists {
		t.Fatalf("expected batch 1 to exist after insert")
	}

	maxID, ok, err := s.MaxSecondaryBatchID()
	if err != nil {
		t.Fatalf("MaxSecondaryBatchID() error = %v", err)
	}
	if !ok || maxID != 1 {
		t.Errorf("got (%d, %v), want (1, true)", maxID, ok)
	}
}

func TestAllPrimaryBatchIDsEmpty(t *testing.T) {
	s := newTestStorage(t)
	ids, err := s.AllPrimaryBatchIDs()
	if err != nil {
		t.Fatalf("AllPrimaryBatchIDs() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no batch ids, got %v", ids)
	}
}
