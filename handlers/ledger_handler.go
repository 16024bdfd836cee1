package handlers

import (
	"net/http"

	"shipmentledger/ledger"
	"shipmentledger/models"
)

type LedgerHandler struct {
	Reader *ledger.Reader
	Cache  Invalidator
}

// Transactions handler
func (h *LedgerHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid request ID")
		return
	}
	txs, err := h.Reader.LoadTransactions(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: txs})
}

// Payments handler
func (h *LedgerHandler) Payments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid transaction ID")
		return
	}
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: h.Reader.GetPaymentHistory(r.Context(), id)})
}

// CreatePayment opens the vehicle's transaction if needed and records the first payment.
func (h *LedgerHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	h.recordPayment(w, r, nil, http.StatusCreated)
}

// AppendPayment records a further payment on an existing transaction.
func (h *LedgerHandler) AppendPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid transaction ID")
		return
	}
	h.recordPayment(w, r, &id, http.StatusOK)
}

func (h *LedgerHandler) recordPayment(w http.ResponseWriter, r *http.Request, transactionID *int64, status int) {
	var in models.PaymentInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	tx, err := h.Reader.RecordPayment(r.Context(), transactionID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.Cache.Invalidate(tx.RequestID)
	writeJSON(w, status, ApiResponse{Success: true, Message: "Payment recorded", Data: tx})
}
