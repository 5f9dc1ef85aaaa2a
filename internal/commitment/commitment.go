// Package commitment computes the deterministic state root committed into
// each batch header. The fold is intentionally a simple, non-cryptographic
// placeholder (AccountsFoldHashV1) — the algorithm, not its strength, is
// the contract: any reimplementation must reproduce the exact same bytes.
package commitment

import "github.com/Zelana-Labs/zksvm-v2/internal/types"

// domainSeparator is the 32-byte block whose first 23 bytes are the ASCII
// string "zelana:accounts-fold:v1" and whose remaining bytes are zero.
var domainSeparator = buildDomainSeparator()

func buildDomainSeparator() [32]byte {
	var ds [32]byte
	copy(ds[:], "zelana:accounts-fold:v1")
	return ds
}

// fold is the bytewise XOR of two 32-byte blocks (H in spec.md §4.2).
func fold(a, b [32]byte) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func le64Block(v uint64) [32]byte {
	var b [32]byte
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
	return b
}

// AccountEntry pairs a Pubkey with its Account state for commitment
// purposes. Callers must pass entries already sorted in ascending Pubkey
// order; Compute does not sort them itself so that callers who already
// hold an ordered map (e.g. a BTreeMap-equivalent) avoid a redundant sort.
type AccountEntry struct {
	Pubkey  types.Pubkey
	Account types.Account
}

// Compute folds the given accounts (which MUST already be in ascending
// Pubkey order) and the batch id into the 32-byte AccountsFoldHashV1 root.
//
// Determinism: iteration is strictly in the order given, all numeric
// encodings are little-endian, and there is no floating point anywhere in
// the fold — so for identical inputs, on any machine, the output is
// bit-identical.
func Compute(accounts []AccountEntry, batchID uint64) [32]byte {
	acc := fold(domainSeparator, le64Block(batchID))

	for _, e := range accounts {
		inner := fold(le64Block(e.Account.Balance), le64Block(e.Account.Nonce))
		leaf := fold(e.Pubkey, inner)
		acc = fold(acc, leaf)
	}

	return fold(acc, le64Block(uint64(len(accounts))))
}
