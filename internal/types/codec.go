package types

import (
	"encoding/binary"
	"fmt"
)

// EncodeAccount serializes an Account into a compact, deterministic binary
// form: two big-endian u64 fields. Round-trips via DecodeAccount.
func EncodeAccount(a Account) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], a.Balance)
	binary.BigEndian.PutUint64(buf[8:16], a.Nonce)
	return buf
}

// DecodeAccount is the inverse of EncodeAccount.
func DecodeAccount(buf []byte) (Account, error) {
	if len(buf) != 16 {
		return Account{}, fmt.Errorf("types: account value must be 16 bytes, got %d", len(buf))
	}
	return Account{
		Balance: binary.BigEndian.Uint64(buf[0:8]),
		Nonce:   binary.BigEndian.Uint64(buf[8:16]),
	}, nil
}

// EncodeTransaction serializes a Transaction into a compact, deterministic
// fixed-width binary form (105 bytes, no length prefix):
//
//	sender(32) ‖ recipient(32) ‖ kind(1) ‖ amount(8 BE) ‖ signature(32)
func EncodeTransaction(tx Transaction) []byte {
	buf := make([]byte, 32+32+1+8+32)
	off := 0
	copy(buf[off:off+32], tx.Sender[:])
	off += 32
	copy(buf[off:off+32], tx.Recipient[:])
	off += 32
	buf[off] = byte(tx.TxType.Kind)
	off++
	binary.BigEndian.PutUint64(buf[off:off+8], tx.TxType.Amount)
	off += 8
	copy(buf[off:off+32], tx.Signature[:])
	return buf
}

// DecodeTransaction is the inverse of EncodeTransaction.
func DecodeTransaction(buf []byte) (Transaction, error) {
	const want = 32 + 32 + 1 + 8 + 32
	if len(buf) != want {
		return Transaction{}, fmt.Errorf("types: transaction value must be %d bytes, got %d", want, len(buf))
	}
	var tx Transaction
	off := 0
	copy(tx.Sender[:], buf[off:off+32])
	off += 32
	copy(tx.Recipient[:], buf[off:off+32])
	off += 32
	tx.TxType.Kind = TransactionKind(buf[off])
	off++
	tx.TxType.Amount = binary.BigEndian.Uint64(buf[off : off+8])
	off += 8
	copy(tx.Signature[:], buf[off:off+32])
	return tx, nil
}
