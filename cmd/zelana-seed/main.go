// Package main provides zelana-seed, a database seeding/benchmark tool,
// grounded in original_source's bench-tool binary: it seeds N accounts and
// simulates M sealed batches of random transfers directly against a fresh
// store, bypassing the inbound queue but exercising the real commitment
// and commit-engine code paths.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/Zelana-Labs/zksvm-v2/internal/commit"
	"github.com/Zelana-Labs/zksvm-v2/internal/commitment"
	"github.com/Zelana-Labs/zksvm-v2/internal/storage"
	"github.com/Zelana-Labs/zksvm-v2/internal/types"
	bolt "go.etcd.io/bbolt"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "./zelana-seed-db", "Data directory to create (must not already exist)")
		numAccounts = flag.Int("accounts", 1000, "Number of accounts to seed")
		numBatches  = flag.Int("batches", 100, "Number of batches to simulate and commit")
		txPerBatch  = flag.Int("tx-per-batch", 10, "Transfers attempted per simulated batch")
		seed        = flag.Int64("seed", 42, "Deterministic RNG seed")
	)
	flag.Parse()

	if _, err := os.Stat(*dataDir); err == nil {
		fmt.Fprintf(os.Stderr, "zelana-seed: %s already exists, refusing to overwrite\n", *dataDir)
		os.Exit(1)
	}

	store, err := storage.New(&storage.Config{DataDir: *dataDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "zelana-seed: open storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	fmt.Printf("database initialized at %s\n", *dataDir)

	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("seeding %d initial accounts...\n", *numAccounts)
	pubkeys := make([]types.Pubkey, *numAccounts)
	accounts := make(map[types.Pubkey]types.Account, *numAccounts)
	err = store.KV().Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(storage.BucketAccounts)
		for i := range pubkeys {
			var pk types.Pubkey
			rng.Read(pk[:])
			acc := types.Account{Balance: 1_000_000, Nonce: 0}
			if err := b.Put(pk[:], types.EncodeAccount(acc)); err != nil {
				return err
			}
			pubkeys[i] = pk
			accounts[pk] = acc
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "zelana-seed: seed accounts: %v\n", err)
		os.Exit(1)
	}

	sort.Slice(pubkeys, func(i, j int) bool { return pubkeys[i].Less(pubkeys[j]) })

	engine := commit.New(store)
	tip := types.Genesis()

	fmt.Printf("simulating and committing %d batches of up to %d transfers each...\n", *numBatches, *txPerBatch)
	for i := 0; i < *numBatches; i++ {
		writeSet := make(map[types.Pubkey]types.Account)
		var committedTxs []types.Transaction

		for j := 0; j < *txPerBatch; j++ {
			senderPK := pubkeys[rng.Intn(len(pubkeys))]
			recipientPK := pubkeys[rng.Intn(len(pubkeys))]
			sender := accounts[senderPK]
			if sender.Balance <= 1 {
				continue
			}
			sender.Balance--
			sender.Nonce++
			accounts[senderPK] = sender
			writeSet[senderPK] = sender

			recipient := accounts[recipientPK]
			recipient.Balance++
			accounts[recipientPK] = recipient
			writeSet[recipientPK] = recipient

			var sig types.Signature
			rng.Read(sig[:])
			committedTxs = append(committedTxs, types.Transaction{
				Sender:    senderPK,
				Recipient: recipientPK,
				TxType:    types.Transfer(1),
				Signature: sig,
			})
		}

		entries := make([]commitment.AccountEntry, len(pubkeys))
		for k, pk := range pubkeys {
			entries[k] = commitment.AccountEntry{Pubkey: pk, Account: accounts[pk]}
		}
		newRoot := commitment.Compute(entries, tip.BatchID+1)

		header := types.BlockHeader{
			Magic:      types.HeaderMagic,
			HdrVersion: types.HeaderVersion,
			BatchID:    tip.BatchID + 1,
			PrevRoot:   tip.NewRoot,
			NewRoot:    newRoot,
			TxCount:    uint32(len(committedTxs)),
			OpenAt:     uint64(time.Now().Unix()),
		}

		if err := engine.Commit(header, writeSet, committedTxs, time.Now); err != nil {
			fmt.Fprintf(os.Stderr, "zelana-seed: commit batch %d: %v\n", header.BatchID, err)
			os.Exit(1)
		}
		tip = header

		if (i+1)%max(1, *numBatches/10) == 0 {
			fmt.Printf("  %d/%d batches committed\n", i+1, *numBatches)
		}
	}

	fmt.Println("seeding complete")
}
