// Package api exposes the sequencer's read-mostly query interface and
// transaction submission endpoint over HTTP and JSON, plus a WebSocket
// feed of sealed batches. It is a thin caller of internal/storage and
// internal/sequencer — the collaborator-facing surface spec.md places out
// of the sequencer core itself.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Zelana-Labs/zksvm-v2/internal/sequencer"
	"github.com/Zelana-Labs/zksvm-v2/internal/storage"
	"github.com/Zelana-Labs/zksvm-v2/internal/types"
	"github.com/Zelana-Labs/zksvm-v2/pkg/logging"
	"github.com/google/uuid"
)

// Server serves the HTTP/JSON query surface and WebSocket tip feed.
type Server struct {
	store *storage.Storage
	seq   *sequencer.Sequencer
	log   *logging.Logger
	wsHub *wsHub

	server   *http.Server
	listener net.Listener
}

// NewServer builds a Server over store and seq. seq may be nil if the
// sequencer is constructed after the server (its OnSeal hook closes over
// the server); call AttachSequencer once it's ready. Call Start to begin
// serving.
func NewServer(store *storage.Storage, seq *sequencer.Sequencer) *Server {
	return &Server{
		store: store,
		seq:   seq,
		log:   logging.GetDefault().Component("api"),
		wsHub: newWSHub(),
	}
}

// AttachSequencer binds seq to the server. Used when the sequencer can
// only be constructed after the server, because its OnSeal hook is
// s.NotifyBatchSealed.
func (s *Server) AttachSequencer(seq *sequencer.Sequencer) {
	s.seq = seq
}

// NotifyBatchSealed publishes a batch_sealed event to every connected
// WebSocket client. Pass this as a sequencer.Config.OnSeal hook to wire
// the tip feed up to the sequencer loop.
func (s *Server) NotifyBatchSealed(header types.BlockHeader) {
	s.wsHub.broadcastBatchSealed(BatchSealedData{
		BatchID: header.BatchID,
		NewRoot: fmt.Sprintf("%x", header.NewRoot),
		TxCount: header.TxCount,
	})
}

// Start begins serving on addr. It returns once the listener is bound;
// serving continues in a background goroutine until Stop is called.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen on %s: %w", addr, err)
	}
	s.listener = listener

	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /v1/tip", s.handleGetTip)
	mux.HandleFunc("GET /v1/accounts/{pubkey}", s.handleGetAccount)
	mux.HandleFunc("GET /v1/tx/{signature}", s.handleGetTransaction)
	mux.HandleFunc("GET /v1/batches/{id}", s.handleGetBatch)
	mux.HandleFunc("POST /v1/send_transaction", s.handleSendTransaction)
	mux.HandleFunc("POST /v1/deposit", s.handleDeposit)
	mux.HandleFunc("GET /ws", s.handleWS)

	s.server = &http.Server{
		Handler:      requestIDMiddleware(corsMiddleware(mux), s.log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("api server error", "error", err)
		}
	}()

	s.log.Info("api server started", "addr", addr)
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// corsMiddleware allows cross-origin requests from any client, matching
// the teacher's permissive local-API CORS policy.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware stamps every request with an X-Request-Id header
// and logs it, the way the teacher stamps a UUID on every order and trade
// row.
func requestIDMiddleware(next http.Handler, log *logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		log.Debug("request", "id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
