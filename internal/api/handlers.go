package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/Zelana-Labs/zksvm-v2/internal/storage"
	"github.com/Zelana-Labs/zksvm-v2/internal/types"
	"github.com/Zelana-Labs/zksvm-v2/pkg/helpers"
	bolt "go.etcd.io/bbolt"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError writes an *Error (or wraps any other error as an internal
// error) as a {code, message} JSON body.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = &Error{Code: "internal", Message: err.Error()}
	}
	status := apiErr.HTTPStatus()
	if apiErr.Code == "internal" {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, apiErr)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.store.PrimaryPath()); err != nil {
		writeError(w, dbUnavailable("primary store directory not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleGetTip(w http.ResponseWriter, r *http.Request) {
	header := s.seq.Tip()
	if header.BatchID == 0 {
		writeError(w, notFound("chain has no sealed batches yet"))
		return
	}
	writeJSON(w, http.StatusOK, headerJSON(header))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	pk, err := parsePubkey(r.PathValue("pubkey"))
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	acc, err := s.store.GetAccount(pk)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, notFound("account not found"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	sig, err := parseSignature(r.PathValue("signature"))
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	tx, err := s.store.GetTransaction(sig)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, notFound("transaction not found"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txJSON(tx))
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, badRequest("batch id must be a non-negative integer"))
		return
	}
	header, err := s.store.GetBatch(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, notFound("batch not found"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, headerJSON(header))
}

// sendTransactionRequest mirrors the wire shape of types.Transaction with
// hex-encoded fixed-size fields, since JSON has no native byte-array type.
type sendTransactionRequest struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Kind      string `json:"kind"`
	Amount    uint64 `json:"amount"`
	Signature string `json:"signature"`
}

func (s *Server) handleSendTransaction(w http.ResponseWriter, r *http.Request) {
	var req sendTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("malformed request body"))
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}

	if err := s.seq.Submit(r.Context(), tx); err != nil {
		writeError(w, dbUnavailable("queue closed"))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":    "queued",
		"signature": helpers.BytesToHex(tx.Signature[:]),
	})
}

// depositRequest is the system-deposit fast path: a direct, synchronous
// mint to a recipient's account, bypassing the mempool entirely. There is
// no sender and no queueing.
type depositRequest struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Signature string `json:"signature"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("malformed request body"))
		return
	}

	recipient, err := parsePubkey(req.Recipient)
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	sig, err := parseSignature(req.Signature)
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}

	acc, err := s.store.GetAccount(recipient)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		writeError(w, err)
		return
	}
	if acc.Balance+req.Amount < acc.Balance {
		writeError(w, badRequest("deposit would overflow recipient balance"))
		return
	}
	acc.Balance += req.Amount

	if err := s.store.KV().Update(func(tx *bolt.Tx) error {
		return tx.Bucket(storage.BucketAccounts).Put(recipient[:], types.EncodeAccount(acc))
	}); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "processed",
		"signature": helpers.BytesToHex(sig[:]),
	})
}

func (req sendTransactionRequest) toTransaction() (types.Transaction, error) {
	sender, err := parsePubkey(req.Sender)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("sender: %w", err)
	}
	recipient, err := parsePubkey(req.Recipient)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("recipient: %w", err)
	}
	sig, err := parseSignature(req.Signature)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("signature: %w", err)
	}

	var txType types.TransactionType
	switch req.Kind {
	case "transfer", "Transfer":
		txType = types.Transfer(req.Amount)
	case "deposit", "Deposit":
		txType = types.Deposit(req.Amount)
	default:
		return types.Transaction{}, fmt.Errorf("unknown transaction kind %q", req.Kind)
	}

	return types.Transaction{
		Sender:    sender,
		Recipient: recipient,
		TxType:    txType,
		Signature: sig,
	}, nil
}

func parsePubkey(s string) (types.Pubkey, error) {
	raw, err := helpers.HexToBytes(s)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(raw) != types.PubkeySize {
		return types.Pubkey{}, fmt.Errorf("pubkey must be %d bytes, got %d", types.PubkeySize, len(raw))
	}
	var pk types.Pubkey
	copy(pk[:], raw)
	return pk, nil
}

func parseSignature(s string) (types.Signature, error) {
	raw, err := helpers.HexToBytes(s)
	if err != nil {
		return types.Signature{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(raw) != types.SignatureSize {
		return types.Signature{}, fmt.Errorf("signature must be %d bytes, got %d", types.SignatureSize, len(raw))
	}
	var sig types.Signature
	copy(sig[:], raw)
	return sig, nil
}

// headerJSON and txJSON render fixed-byte-array fields as hex for JSON
// responses.
func headerJSON(h types.BlockHeader) map[string]interface{} {
	return map[string]interface{}{
		"batch_id":  h.BatchID,
		"prev_root": helpers.BytesToHex(h.PrevRoot[:]),
		"new_root":  helpers.BytesToHex(h.NewRoot[:]),
		"tx_count":  h.TxCount,
		"open_at":   h.OpenAt,
	}
}

func txJSON(tx types.Transaction) map[string]interface{} {
	return map[string]interface{}{
		"sender":    helpers.BytesToHex(tx.Sender[:]),
		"recipient": helpers.BytesToHex(tx.Recipient[:]),
		"kind":      tx.TxType.Kind.String(),
		"amount":    tx.TxType.Amount,
		"signature": helpers.BytesToHex(tx.Signature[:]),
	}
}
