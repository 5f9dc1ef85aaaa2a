package commit

import (
	"bytes"
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

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestCommitWritesAccountsTxsAndHeader(t *testing.T) {
	s := newTestStore(t)
	e := New(s)

	alice := types.Pubkey{1}
	bob := types.Pubkey{2}
	sig := types.Signature{9}

	header := types.Genesis()
	header.BatchID = 1
	header.TxCount = 1
	header.NewRoot = [32]byte{0xAA}

	writeSet := map[types.Pubkey]types.Account{
		alice: {Balance: 900, Nonce: 1},
		bob:   {Balance: 100},
	}
	txs := []types.Transaction{
		{Sender: alice, Recipient: bob, TxType: types.Transfer(100), Signature: sig},
	}

	if err := e.Commit(header, writeSet, txs, fixedClock(time.Unix(1000, 0))); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	gotAlice, err := s.GetAccount(alice)
	if err != nil {
		t.Fatalf("GetAccount(alice) error = %v", err)
	}
	if gotAlice != writeSet[alice] {
		t.Errorf("alice = %+v, want %+v", gotAlice, writeSet[alice])
	}

	gotTx, err := s.GetTransaction(sig)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if gotTx != txs[0] {
		t.Errorf("tx = %+v, want %+v", gotTx, txs[0])
	}

	gotHeader, err := s.GetBatch(1)
	if err != nil {
		t.Fatalf("GetBatch(1) error = %v", err)
	}
	if gotHeader.NewRoot != header.NewRoot {
		t.Errorf("header.NewRoot = %x, want %x", gotHeader.NewRoot, header.NewRoot)
	}

	exists, err := s.SecondaryBatchExists(1)
	if err != nil {
		t.Fatalf("SecondaryBatchExists() error = %v", err)
	}
	if !exists {
		t.Error("expected secondary batch row to exist after commit")
	}
}

func TestCommitTimestampsNonDecreasing(t *testing.T) {
	s := newTestStore(t)
	e := New(s)

	sigA := types.Signature{0}
	sigB := types.Signature{1}
	sender := types.Pubkey{1}

	header := types.Genesis()
	header.BatchID = 1
	header.TxCount = 2

	// Same clock reading for both txs simulates coarse clock resolution;
	// the commit engine must still produce two distinct, ordered
	// tx_by_time keys via the signature tie-break.
	clock := fixedClock(time.Unix(5000, 0))
	txs := []types.Transaction{
		{Sender: sender, Recipient: sender, TxType: types.Deposit(1), Signature: sigA},
		{Sender: sender, Recipient: sender, TxType: types.Deposit(1), Signature: sigB},
	}

	if err := e.Commit(header, nil, txs, clock); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if _, err := s.GetTransaction(sigA); err != nil {
		t.Errorf("GetTransaction(sigA) error = %v", err)
	}
	if _, err := s.GetTransaction(sigB); err != nil {
		t.Errorf("GetTransaction(sigB) error = %v", err)
	}

	var keys [][]byte
	if err := s.KV().View(func(btx *bolt.Tx) error {
		return btx.Bucket(storage.BucketTxByTime).ForEach(func(k, _ []byte) error {
			keys = append(keys, append([]byte{}, k...))
			return nil
		})
	}); err != nil {
		t.Fatalf("View(tx_by_time) error = %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("tx_by_time holds %d keys, want 2", len(keys))
	}
	if bytes.Compare(keys[0][:8], keys[1][:8]) > 0 {
		t.Errorf("tx_by_time timestamps decrease: %x then %x", keys[0][:8], keys[1][:8])
	}
	if !bytes.Equal(keys[0][8:], sigA[:]) || !bytes.Equal(keys[1][8:], sigB[:]) {
		t.Errorf("tx_by_time keys not ordered by signature on equal timestamps: %x, %x", keys[0], keys[1])
	}
}
