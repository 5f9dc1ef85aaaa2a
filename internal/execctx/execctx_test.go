package execctx

import (
	"errors"
	"testing"

	"github.com/Zelana-Labs/zksvm-v2/internal/storage"
	"github.com/Zelana-Labs/zksvm-v2/internal/types"
)

type fakeReader map[types.Pubkey]types.Account

func (f fakeReader) GetAccount(pubkey types.Pubkey) (types.Account, error) {
	acc, ok := f[pubkey]
	if !ok {
		return types.Account{}, storage.ErrNotFound
	}
	return acc, nil
}

var (
	alice = types.Pubkey{1}
	bob   = types.Pubkey{2}
	carol = types.Pubkey{3}
)

func TestTransferMovesFunds(t *testing.T) {
	reader := fakeReader{alice: {Balance: 100, Nonce: 0}}
	ctx := New(reader)

	tx := types.Transaction{Sender: alice, Recipient: bob, TxType: types.Transfer(40)}
	if err := ctx.Execute(tx); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	a, _ := ctx.GetAccount(alice)
	b, _ := ctx.GetAccount(bob)
	if a.Balance != 60 || a.Nonce != 1 {
		t.Errorf("sender = %+v, want balance=60 nonce=1", a)
	}
	if b.Balance != 40 || b.Nonce != 0 {
		t.Errorf("recipient = %+v, want balance=40 nonce=0", b)
	}
}

func TestTransferSenderNotFound(t *testing.T) {
	ctx := New(fakeReader{})
	tx := types.Transaction{Sender: alice, Recipient: bob, TxType: types.Transfer(1)}
	if err := ctx.Execute(tx); !errors.Is(err, ErrSenderNotFound) {
		t.Errorf("Execute() error = %v, want ErrSenderNotFound", err)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	reader := fakeReader{alice: {Balance: 10}}
	ctx := New(reader)
	tx := types.Transaction{Sender: alice, Recipient: bob, TxType: types.Transfer(11)}
	if err := ctx.Execute(tx); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Execute() error = %v, want ErrInsufficientFunds", err)
	}
	// overlay must be untouched on soft failure
	a, _ := ctx.GetAccount(alice)
	if a.Balance != 10 {
		t.Errorf("sender balance mutated after failed transfer: %+v", a)
	}
}

func TestTransferRecipientOverflowIsFatal(t *testing.T) {
	reader := fakeReader{
		alice: {Balance: 10},
		bob:   {Balance: ^uint64(0)},
	}
	ctx := New(reader)
	tx := types.Transaction{Sender: alice, Recipient: bob, TxType: types.Transfer(1)}
	if err := ctx.Execute(tx); !errors.Is(err, ErrBalanceOverflow) {
		t.Errorf("Execute() error = %v, want ErrBalanceOverflow", err)
	}
}

func TestDepositCreditsRecipientOnly(t *testing.T) {
	ctx := New(fakeReader{})
	tx := types.Transaction{Recipient: carol, TxType: types.Deposit(500)}
	if err := ctx.Execute(tx); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	c, _ := ctx.GetAccount(carol)
	if c.Balance != 500 || c.Nonce != 0 {
		t.Errorf("recipient = %+v, want balance=500 nonce=0", c)
	}
}

func TestDepositOverflowIsFatal(t *testing.T) {
	reader := fakeReader{carol: {Balance: ^uint64(0)}}
	ctx := New(reader)
	tx := types.Transaction{Recipient: carol, TxType: types.Deposit(1)}
	if err := ctx.Execute(tx); !errors.Is(err, ErrBalanceOverflow) {
		t.Errorf("Execute() error = %v, want ErrBalanceOverflow", err)
	}
}

func TestOverlayAccumulatesAcrossTransactions(t *testing.T) {
	reader := fakeReader{alice: {Balance: 100}}
	ctx := New(reader)

	if err := ctx.Execute(types.Transaction{Sender: alice, Recipient: bob, TxType: types.Transfer(30)}); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	if err := ctx.Execute(types.Transaction{Sender: bob, Recipient: carol, TxType: types.Transfer(10)}); err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}

	overlay := ctx.Overlay()
	if len(overlay) != 3 {
		t.Fatalf("len(overlay) = %d, want 3", len(overlay))
	}
	if overlay[bob].Balance != 20 || overlay[bob].Nonce != 1 {
		t.Errorf("bob = %+v, want balance=20 nonce=1", overlay[bob])
	}
	if overlay[carol].Balance != 10 {
		t.Errorf("carol = %+v, want balance=10", overlay[carol])
	}
}
