// Package main provides zelanad, the sequencer daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Zelana-Labs/zksvm-v2/internal/api"
	"github.com/Zelana-Labs/zksvm-v2/internal/config"
	"github.com/Zelana-Labs/zksvm-v2/internal/recovery"
	"github.com/Zelana-Labs/zksvm-v2/internal/sequencer"
	"github.com/Zelana-Labs/zksvm-v2/internal/storage"
	"github.com/Zelana-Labs/zksvm-v2/internal/types"
	"github.com/Zelana-Labs/zksvm-v2/pkg/logging"
	bolt "go.etcd.io/bbolt"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

// genesisPubkey is the sole account credited at first boot when the chain
// has no batches and the accounts column family is empty: every byte set
// to 1.
var genesisPubkey = func() types.Pubkey {
	var pk types.Pubkey
	for i := range pk {
		pk[i] = 1
	}
	return pk
}()

// genesisBalance is the starting balance minted to genesisPubkey.
const genesisBalance = 1_000_000

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.zelana", "Data directory")
		configFile  = flag.String("config", "", "Config file path; only its directory is used, and the file read there is always config.yaml (default: <data-dir>/config.yaml)")
		apiAddr     = flag.String("api", "", "HTTP/WebSocket API address, overrides config")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: "info", TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("zelanad %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadConfig(filepath.Dir(*configFile))
	} else {
		cfg, err = config.LoadConfig(*dataDir)
	}
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	if *apiAddr != "" {
		cfg.API.ListenAddr = *apiAddr
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	log = logging.New(&logging.Config{Level: cfg.Logging.Level, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)
	log.Info("config loaded", "path", config.ConfigPath(*dataDir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(&storage.Config{DataDir: cfg.Storage.DataDir})
	if err != nil {
		log.Fatal("failed to initialize storage", "error", err)
	}
	defer store.Close()
	log.Info("storage initialized", "path", store.PrimaryPath())

	if err := recovery.Reconcile(store); err != nil {
		log.Fatal("store reconciliation failed", "error", err)
	}
	log.Info("stores reconciled")

	if err := bootstrapGenesis(store, log); err != nil {
		log.Fatal("genesis bootstrap failed", "error", err)
	}

	apiServer := api.NewServer(store, nil)

	seq, err := sequencer.New(store, sequencer.Config{
		QueueCapacity: cfg.Sequencer.QueueCapacity,
		MaxTxPerBatch: cfg.Sequencer.MaxTxPerBatch,
		Logger:        log.Component("sequencer"),
		OnSeal:        apiServer.NotifyBatchSealed,
	})
	if err != nil {
		log.Fatal("failed to construct sequencer", "error", err)
	}
	apiServer.AttachSequencer(seq)

	runErr := make(chan error, 1)
	go func() { runErr <- seq.Run(ctx) }()

	if err := apiServer.Start(cfg.API.ListenAddr); err != nil {
		log.Fatal("failed to start api server", "error", err)
	}

	log.Info("zelanad started", "api", cfg.API.ListenAddr, "tip", seq.Tip().BatchID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutting down...")
	case err := <-runErr:
		if err != nil && err != context.Canceled {
			log.Error("sequencer loop exited", "error", err)
		}
	}

	cancel()
	seq.Close()
	<-runErr

	if err := apiServer.Stop(); err != nil {
		log.Error("error stopping api server", "error", err)
	}

	log.Info("goodbye!")
}

// bootstrapGenesis mints the genesis account when the chain has no batches
// and the accounts column family is empty, so a freshly initialized data
// directory has funds to transfer from.
func bootstrapGenesis(store *storage.Storage, log *logging.Logger) error {
	if _, err := store.GetTip(); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	order, _, err := store.AllAccounts()
	if err != nil {
		return err
	}
	if len(order) > 0 {
		return nil
	}

	acc := types.Account{Balance: genesisBalance, Nonce: 0}
	if err := store.KV().Update(func(tx *bolt.Tx) error {
		return tx.Bucket(storage.BucketAccounts).Put(genesisPubkey[:], types.EncodeAccount(acc))
	}); err != nil {
		return err
	}

	log.Info("genesis account minted", "pubkey", genesisPubkey, "balance", genesisBalance)
	return nil
}
