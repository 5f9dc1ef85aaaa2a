// Package sequencer drains a stream of transactions into numbered
// batches: a bounded inbound channel feeds an in-memory mempool, which
// seals into a batch once it reaches a size threshold, producing a new
// state commitment and advancing the chain tip. Exactly one goroutine
// runs the loop, so no locking is needed around the mempool; the tip is
// guarded by a read/write mutex so other goroutines can read it.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Zelana-Labs/zksvm-v2/internal/commit"
	"github.com/Zelana-Labs/zksvm-v2/internal/commitment"
	"github.com/Zelana-Labs/zksvm-v2/internal/execctx"
	"github.com/Zelana-Labs/zksvm-v2/internal/storage"
	"github.com/Zelana-Labs/zksvm-v2/internal/types"
	"github.com/Zelana-Labs/zksvm-v2/pkg/logging"
)

// DefaultQueueCapacity is the bound on the inbound transaction channel
// absent explicit configuration.
const DefaultQueueCapacity = 100

// DefaultMaxTxPerBatch is the mempool length that triggers a seal absent
// explicit configuration.
const DefaultMaxTxPerBatch = 5

// ErrQueueClosed is returned by Submit once the sequencer has stopped
// accepting new transactions.
var ErrQueueClosed = errors.New("sequencer: queue closed")

// Sequencer owns the inbound queue, mempool, and chain tip for one
// running instance. Construct with New and start the loop with Run.
type Sequencer struct {
	store   *storage.Storage
	commit  *commit.Engine
	inbound chan types.Transaction

	maxTxPerBatch int
	log           *logging.Logger
	onSeal        func(types.BlockHeader)

	tipMu sync.RWMutex
	tip   types.BlockHeader
}

// Config configures a Sequencer.
type Config struct {
	QueueCapacity int
	MaxTxPerBatch int
	Logger        *logging.Logger

	// OnSeal, if set, is invoked synchronously after every successful seal
	// with the newly committed header — the sequencer's only hook for
	// collaborators like the WebSocket tip feed that want to observe
	// batches as they land, without polling storage.
	OnSeal func(types.BlockHeader)
}

// New constructs a Sequencer bound to store, loading the current tip (or
// genesis, if the chain is empty) synchronously so that callers observe a
// ready-to-use Sequencer.
func New(store *storage.Storage, cfg Config) (*Sequencer, error) {
	queueCap := cfg.QueueCapacity
	if queueCap <= 0 {
		queueCap = DefaultQueueCapacity
	}
	maxTx := cfg.MaxTxPerBatch
	if maxTx <= 0 {
		maxTx = DefaultMaxTxPerBatch
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetDefault().Component("sequencer")
	}

	tip, err := loadTip(store)
	if err != nil {
		return nil, fmt.Errorf("sequencer: load tip: %w", err)
	}

	return &Sequencer{
		store:         store,
		commit:        commit.New(store),
		inbound:       make(chan types.Transaction, queueCap),
		maxTxPerBatch: maxTx,
		log:           logger,
		onSeal:        cfg.OnSeal,
		tip:           tip,
	}, nil
}

// loadTip scans the batches column family in descending order and returns
// the newest header, or genesis if the chain has no batches yet.
func loadTip(store *storage.Storage) (types.BlockHeader, error) {
	hdr, err := store.GetTip()
	if errors.Is(err, storage.ErrNotFound) {
		return types.Genesis(), nil
	}
	if err != nil {
		return types.BlockHeader{}, err
	}
	return hdr, nil
}

// Tip returns the current chain tip. Safe to call concurrently with Run;
// the sequencer is the only writer, so reads never observe a half-updated
// header.
func (s *Sequencer) Tip() types.BlockHeader {
	s.tipMu.RLock()
	defer s.tipMu.RUnlock()
	return s.tip
}

// Submit enqueues a transaction for the next batch. It blocks if the
// inbound queue is full (back-pressure), and returns ErrQueueClosed if the
// queue has been closed by Close.
func (s *Sequencer) Submit(ctx context.Context, tx types.Transaction) (err error) {
	// A send on the closed inbound channel panics; report it as
	// ErrQueueClosed instead.
	defer func() {
		if recover() != nil {
			err = ErrQueueClosed
		}
	}()
	select {
	case s.inbound <- tx:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new transactions. Run drains whatever remains in
// the mempool and inbound queue, seals a final batch if non-empty, then
// returns.
func (s *Sequencer) Close() {
	close(s.inbound)
}

// Run is the sequencer's single logical writer loop. It is
// cancellation-aware only at the queue-receive boundary: a cancellation
// delivered mid-seal is deferred until the in-flight commit completes or
// fails, so a partial commit is never observable.
func (s *Sequencer) Run(ctx context.Context) error {
	var mempool []types.Transaction

	for {
		select {
		case tx, ok := <-s.inbound:
			if !ok {
				if len(mempool) > 0 {
					if err := s.seal(mempool); err != nil {
						if errors.Is(err, execctx.ErrBalanceOverflow) {
							return err
						}
						s.log.Error("seal failed while draining closed queue, dropping remaining mempool", "error", err)
					}
				}
				return nil
			}
			mempool = append(mempool, tx)
			if len(mempool) >= s.maxTxPerBatch {
				batch := mempool
				mempool = nil
				if err := s.seal(batch); err != nil {
					if errors.Is(err, execctx.ErrBalanceOverflow) {
						return err
					}
					// Per spec.md §7, a storage-layer error aborts only this
					// seal attempt: the tip is not advanced, and the batch's
					// transactions go back to the front of the mempool so
					// they are retried the next time a seal triggers.
					s.log.Error("seal failed, restoring batch to mempool for retry", "error", err)
					mempool = append(batch, mempool...)
				}
			}
		case <-ctx.Done():
			// Deferred: we only observe cancellation between receives, never
			// mid-seal, so there is nothing in flight to abandon here.
			return ctx.Err()
		}
	}
}

// seal executes, commits, and advances the tip for one batch of
// transactions. A storage error aborts the seal and the tip is not
// advanced; per spec.md §7 the caller (Run) restores the batch to the
// front of the mempool so it is retried on the next seal trigger.
// ErrBalanceOverflow is the one fatal case: it is returned wrapped so Run
// can detect it and terminate instead of retrying.
func (s *Sequencer) seal(txs []types.Transaction) error {
	tip := s.Tip()
	newBatchID := tip.BatchID + 1

	ectx := execctx.New(s.store)
	var committed []types.Transaction
	for _, tx := range txs {
		if err := ectx.Execute(tx); err != nil {
			if errors.Is(err, execctx.ErrBalanceOverflow) {
				return fmt.Errorf("seal: fatal execution error on batch %d: %w", newBatchID, err)
			}
			s.log.Warn("dropping transaction", "batch_id", newBatchID, "signature", tx.Signature, "error", err)
			continue
		}
		committed = append(committed, tx)
	}

	order, accounts, err := s.store.AllAccounts()
	if err != nil {
		return fmt.Errorf("seal: scan accounts: %w", err)
	}
	for pk, acc := range ectx.Overlay() {
		if _, existed := accounts[pk]; !existed {
			order = append(order, pk)
		}
		accounts[pk] = acc
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Less(order[j]) })

	entries := make([]commitment.AccountEntry, len(order))
	for i, pk := range order {
		entries[i] = commitment.AccountEntry{Pubkey: pk, Account: accounts[pk]}
	}
	newRoot := commitment.Compute(entries, newBatchID)

	header := types.BlockHeader{
		Magic:      types.HeaderMagic,
		HdrVersion: types.HeaderVersion,
		BatchID:    newBatchID,
		PrevRoot:   tip.NewRoot,
		NewRoot:    newRoot,
		TxCount:    uint32(len(committed)),
		OpenAt:     uint64(time.Now().Unix()),
		Flags:      0,
	}

	if err := s.commit.Commit(header, ectx.Overlay(), committed, time.Now); err != nil {
		return fmt.Errorf("seal: commit batch %d: %w", newBatchID, err)
	}

	s.tipMu.Lock()
	s.tip = header
	s.tipMu.Unlock()

	s.log.Info("batch sealed", "batch_id", header.BatchID, "tx_count", header.TxCount)
	if s.onSeal != nil {
		s.onSeal(header)
	}
	return nil
}
