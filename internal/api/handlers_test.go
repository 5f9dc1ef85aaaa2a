package api

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Zelana-Labs/zksvm-v2/internal/sequencer"
	"github.com/Zelana-Labs/zksvm-v2/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Storage) {
	t.Helper()
	store, err := storage.New(&storage.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	seq, err := sequencer.New(store, sequencer.Config{MaxTxPerBatch: 5})
	if err != nil {
		t.Fatalf("sequencer.New() error = %v", err)
	}

	srv := NewServer(store, seq)
	return srv, store
}

func newMux(srv *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.HandleFunc("GET /readyz", srv.handleReadyz)
	mux.HandleFunc("GET /v1/tip", srv.handleGetTip)
	mux.HandleFunc("GET /v1/accounts/{pubkey}", srv.handleGetAccount)
	mux.HandleFunc("POST /v1/deposit", srv.handleDeposit)
	return mux
}

func TestHealthzAndReadyz(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := newMux(srv)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/readyz status = %d, want 200", rec.Code)
	}
}

func TestGetTipReturns404WhenEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := newMux(srv)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tip", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/v1/tip status = %d, want 404", rec.Code)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := newMux(srv)

	pk := make([]byte, 32)
	pk[0] = 7
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/accounts/"+hex.EncodeToString(pk), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetAccountBadHex(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := newMux(srv)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/accounts/not-hex", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDepositCreditsAccountDirectly(t *testing.T) {
	srv, store := newTestServer(t)
	mux := newMux(srv)

	recipient := make([]byte, 32)
	recipient[0] = 42
	sig := make([]byte, 32)
	sig[0] = 1

	body, _ := json.Marshal(depositRequest{
		Recipient: hex.EncodeToString(recipient),
		Amount:    500,
		Signature: hex.EncodeToString(sig),
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/deposit", bytes.NewReader(body))
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var pk [32]byte
	copy(pk[:], recipient)
	acc, err := store.GetAccount(pk)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if acc.Balance != 500 {
		t.Errorf("Balance = %d, want 500", acc.Balance)
	}
}
