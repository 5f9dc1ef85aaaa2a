// Package types defines the core data model of the sequencer: accounts,
// transactions, and the block header that anchors each committed batch.
package types

import "bytes"

// PubkeySize is the length in bytes of a Pubkey.
const PubkeySize = 32

// SignatureSize is the length in bytes of a Signature.
const SignatureSize = 32

// Pubkey is an opaque account identifier. Ordering is lexicographic over
// the raw bytes.
type Pubkey [PubkeySize]byte

// Compare returns -1, 0, or 1 as p is less than, equal to, or greater than
// other, by lexicographic byte order.
func (p Pubkey) Compare(other Pubkey) int {
	return bytes.Compare(p[:], other[:])
}

// Less reports whether p sorts before other.
func (p Pubkey) Less(other Pubkey) bool {
	return p.Compare(other) < 0
}

// Signature is an opaque, unverified transaction identifier. It must be
// unique per transaction for index integrity; the sequencer never checks
// its cryptographic validity.
type Signature [SignatureSize]byte

// Account is the balance/nonce pair tracked per Pubkey. An absent account
// is equivalent to the zero value for read purposes.
type Account struct {
	Balance uint64
	Nonce   uint64
}

// TransactionKind discriminates the tagged union of transaction types.
type TransactionKind uint8

const (
	// KindTransfer moves funds from sender to recipient.
	KindTransfer TransactionKind = iota
	// KindDeposit credits the recipient with no sender debit.
	KindDeposit
)

// String implements fmt.Stringer for diagnostic output.
func (k TransactionKind) String() string {
	switch k {
	case KindTransfer:
		return "Transfer"
	case KindDeposit:
		return "Deposit"
	default:
		return "Unknown"
	}
}

// TransactionType is the tagged union { Transfer{amount} | Deposit{amount} }.
type TransactionType struct {
	Kind   TransactionKind
	Amount uint64
}

// Transfer builds a Transfer transaction type for the given amount.
func Transfer(amount uint64) TransactionType {
	return TransactionType{Kind: KindTransfer, Amount: amount}
}

// Deposit builds a Deposit transaction type for the given amount.
func Deposit(amount uint64) TransactionType {
	return TransactionType{Kind: KindDeposit, Amount: amount}
}

// Transaction is a single signed (unverified) transfer or deposit.
type Transaction struct {
	Sender    Pubkey
	Recipient Pubkey
	TxType    TransactionType
	Signature Signature
}
