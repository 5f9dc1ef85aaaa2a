package types

import "testing"

func TestAccountRoundTrip(t *testing.T) {
	a := Account{Balance: 1_000_000, Nonce: 7}
	got, err := DecodeAccount(EncodeAccount(a))
	if err != nil {
		t.Fatalf("DecodeAccount() error = %v", err)
	}
	if got != a {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, a)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	tx := Transaction{
		Sender:    Pubkey{1},
		Recipient: Pubkey{2},
		TxType:    Transfer(100),
		Signature: Signature{5},
	}
	got, err := DecodeTransaction(EncodeTransaction(tx))
	if err != nil {
		t.Fatalf("DecodeTransaction() error = %v", err)
	}
	if got != tx {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, tx)
	}
}

func TestPubkeyOrdering(t *testing.T) {
	a := Pubkey{0, 0, 1}
	b := Pubkey{0, 0, 2}
	if !a.Less(b) {
		t.Error("expected a < b")
	}
	if b.Less(a) {
		t.Error("expected b not < a")
	}
	if a.Compare(a) != 0 {
		t.Error("expected a.Compare(a) == 0")
	}
}
