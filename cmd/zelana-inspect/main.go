// Package main provides zelana-inspect, a read-only column-family and
// secondary-table dump tool, grounded in original_source's debug-db
// binary: it walks every bucket of the primary store and the secondary
// batches table and pretty-prints each row by its known shape.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/Zelana-Labs/zksvm-v2/internal/storage"
	"github.com/Zelana-Labs/zksvm-v2/internal/types"
	"github.com/Zelana-Labs/zksvm-v2/pkg/helpers"
	bolt "go.etcd.io/bbolt"
)

func main() {
	dataDir := flag.String("data-dir", "~/.zelana", "Data directory to inspect")
	flag.Parse()

	store, err := storage.New(&storage.Config{DataDir: *dataDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "zelana-inspect: open storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	fmt.Printf("primary store: %s\n", store.PrimaryPath())
	fmt.Println("column families:")
	for _, name := range storage.BucketNames() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("────────────────────────────────")

	for _, name := range storage.BucketNames() {
		inspectBucket(store, name)
	}

	inspectSecondary(store)
}

func inspectBucket(store *storage.Storage, name string) {
	fmt.Printf("inspecting column family: %s\n\n", name)
	count := 0
	err := store.KV().View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return fmt.Errorf("bucket %q missing", name)
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			count++
			printRow(name, k, v)
		}
		return nil
	})
	if err != nil {
		fmt.Printf("  error: %v\n", err)
	}
	if count == 0 {
		fmt.Println("  (empty)")
	}
	fmt.Println("────────────────────────────────")
}

func printRow(cfName string, key, value []byte) {
	switch cfName {
	case "accounts":
		var pk types.Pubkey
		copy(pk[:], key)
		acc, err := types.DecodeAccount(value)
		if err != nil {
			fmt.Printf("  account %s: decode error: %v\n", helpers.BytesToHex(key), err)
			return
		}
		fmt.Printf("  account %s: balance=%d nonce=%d\n", helpers.BytesToHex(pk[:]), acc.Balance, acc.Nonce)

	case "txs":
		tx, err := types.DecodeTransaction(value)
		if err != nil {
			fmt.Printf("  tx %s: decode error: %v\n", helpers.BytesToHex(key), err)
			return
		}
		fmt.Printf("  tx %s: sender=%s recipient=%s kind=%s amount=%d\n",
			helpers.BytesToHex(key), helpers.BytesToHex(tx.Sender[:]), helpers.BytesToHex(tx.Recipient[:]),
			tx.TxType.Kind, tx.TxType.Amount)

	case "batches":
		hdr, err := types.HeaderFromBytes(value)
		if err != nil {
			fmt.Printf("  batch key %s: decode error: %v\n", helpers.BytesToHex(key), err)
			return
		}
		fmt.Printf("  batch #%d: magic=%s version=%d new_root=%s tx_count=%d open_at=%d\n",
			hdr.BatchID, hdr.Magic, hdr.HdrVersion, helpers.BytesToHex(hdr.NewRoot[:]), hdr.TxCount, hdr.OpenAt)

	case "tx_by_sender":
		if len(key) < types.PubkeySize+8 {
			fmt.Printf("  malformed tx_by_sender key: %s\n", helpers.BytesToHex(key))
			return
		}
		sender := key[:types.PubkeySize]
		ts := key[types.PubkeySize : types.PubkeySize+8]
		sig := key[types.PubkeySize+8:]
		fmt.Printf("  tx_by_sender sender=%s ts=%s sig=%s\n",
			helpers.BytesToHex(sender), helpers.BytesToHex(ts), helpers.BytesToHex(sig))

	case "tx_by_time":
		if len(key) < 8 {
			fmt.Printf("  malformed tx_by_time key: %s\n", helpers.BytesToHex(key))
			return
		}
		ts := key[:8]
		sig := key[8:]
		fmt.Printf("  tx_by_time ts=%s sig=%s\n", helpers.BytesToHex(ts), helpers.BytesToHex(sig))

	default:
		fmt.Printf("  key=%s value=%s\n", helpers.BytesToHex(key), helpers.BytesToHex(value))
	}
}

func inspectSecondary(store *storage.Storage) {
	fmt.Println("inspecting secondary table: batches")
	rows, err := store.SQL().Query(`SELECT id, new_root, committed_at, proof_status, l1_settlement_tx FROM batches ORDER BY id`)
	if err != nil {
		fmt.Printf("  error: %v\n", err)
		return
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			id             uint64
			newRoot        []byte
			committedAt    string
			proofStatus    string
			l1SettlementTx sql.NullString
		)
		if err := rows.Scan(&id, &newRoot, &committedAt, &proofStatus, &l1SettlementTx); err != nil {
			fmt.Printf("  scan error: %v\n", err)
			continue
		}
		count++
		settlement := "-"
		if l1SettlementTx.Valid {
			settlement = l1SettlementTx.String
		}
		fmt.Printf("  batch #%d: new_root=%s committed_at=%s proof_status=%s l1_settlement_tx=%s\n",
			id, helpers.BytesToHex(newRoot), committedAt, proofStatus, settlement)
	}
	if count == 0 {
		fmt.Println("  (empty)")
	}
	fmt.Println("────────────────────────────────")
}
