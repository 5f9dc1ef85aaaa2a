// Package execctx applies one batch of transactions against committed
// account state without touching the backing store until the batch is
// ready to seal. It holds a write-set overlay: reads fall through to the
// primary store, writes accumulate in memory, and a failed transaction's
// partial effects are simply discarded (there is nothing to roll back,
// since nothing beyond the overlay was ever mutated).
package execctx

import (
	"errors"
	"fmt"

	"github.com/Zelana-Labs/zksvm-v2/internal/storage"
	"github.com/Zelana-Labs/zksvm-v2/internal/types"
)

// ErrSenderNotFound is returned when a Transfer names a sender with no
// account on record.
var ErrSenderNotFound = errors.New("execctx: sender not found")

// ErrInsufficientFunds is returned when a Transfer's sender balance is
// lower than the transfer amount.
var ErrInsufficientFunds = errors.New("execctx: insufficient funds")

// ErrBalanceOverflow is returned (and is always fatal, never a dropped
// transaction) when crediting a recipient would overflow uint64. Per
// spec.md §4.3 this indicates a deeper invariant violation and must abort
// the whole batch rather than silently dropping the offending transaction.
var ErrBalanceOverflow = errors.New("execctx: balance overflow")

// Reader is the subset of storage.Storage that execution needs for account
// lookups. Kept narrow so tests can supply a fake.
type Reader interface {
	GetAccount(pubkey types.Pubkey) (types.Account, error)
}

// Context accumulates the net effect of executing a sequence of
// transactions on top of committed state. Account lookups first check the
// overlay, then fall through to the backing reader.
type Context struct {
	reader  Reader
	overlay map[types.Pubkey]types.Account
}

// New creates an execution context reading committed state through r.
func New(r Reader) *Context {
	return &Context{reader: r, overlay: make(map[types.Pubkey]types.Account)}
}

// GetAccount returns the account's current state, preferring the overlay
// over committed storage. A pubkey with no record anywhere is the zero
// Account (balance 0, nonce 0) — matching spec.md's "absent account reads
// as zero" rule — except for Transfer sender lookups, which first call
// senderExists to distinguish "absent" from "zero balance".
func (c *Context) GetAccount(pubkey types.Pubkey) (types.Account, error) {
	if acc, ok := c.overlay[pubkey]; ok {
		return acc, nil
	}
	acc, err := c.reader.GetAccount(pubkey)
	if errors.Is(err, storage.ErrNotFound) {
		return types.Account{}, nil
	}
	if err != nil {
		return types.Account{}, err
	}
	return acc, nil
}

// senderExists reports whether the sender has ever been recorded, either
// in the overlay or in committed storage — a Transfer from a pubkey that
// has never received any funds is a SenderNotFound, not an empty account.
func (c *Context) senderExists(pubkey types.Pubkey) (bool, error) {
	if _, ok := c.overlay[pubkey]; ok {
		return true, nil
	}
	_, err := c.reader.GetAccount(pubkey)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Execute applies a single transaction to the overlay. On success it
// returns nil and the overlay reflects the new state. On a "soft" failure
// (ErrSenderNotFound, ErrInsufficientFunds) it returns that error and
// leaves the overlay untouched — callers drop the transaction and continue
// with the batch. ErrBalanceOverflow is fatal: callers must abort the
// batch entirely.
func (c *Context) Execute(tx types.Transaction) error {
	switch tx.TxType.Kind {
	case types.KindTransfer:
		return c.executeTransfer(tx)
	case types.KindDeposit:
		return c.executeDeposit(tx)
	default:
		return fmt.Errorf("execctx: unknown transaction kind %d", tx.TxType.Kind)
	}
}

func (c *Context) executeTransfer(tx types.Transaction) error {
	exists, err := c.senderExists(tx.Sender)
	if err != nil {
		return err
	}
	if !exists {
		return ErrSenderNotFound
	}

	sender, err := c.GetAccount(tx.Sender)
	if err != nil {
		return err
	}
	amount := tx.TxType.Amount
	if sender.Balance < amount {
		return ErrInsufficientFunds
	}

	recipient, err := c.GetAccount(tx.Recipient)
	if err != nil {
		return err
	}
	if recipient.Balance+amount < recipient.Balance {
		return ErrBalanceOverflow
	}

	sender.Balance -= amount
	sender.Nonce++
	recipient.Balance += amount

	c.overlay[tx.Sender] = sender
	c.overlay[tx.Recipient] = recipient
	return nil
}

func (c *Context) executeDeposit(tx types.Transaction) error {
	recipient, err := c.GetAccount(tx.Recipient)
	if err != nil {
		return err
	}
	amount := tx.TxType.Amount
	if recipient.Balance+amount < recipient.Balance {
		return ErrBalanceOverflow
	}
	recipient.Balance += amount
	c.overlay[tx.Recipient] = recipient
	return nil
}

// Overlay returns the set of accounts touched by this context's
// transactions, keyed by pubkey. The sequencer merges this over the full
// committed account set to compute the next state commitment.
func (c *Context) Overlay() map[types.Pubkey]types.Account {
	return c.overlay
}
