package handlers

import (
	"net/http"

	"shipmentledger/models"
	"shipmentledger/repository"
)

type RequestHandler struct {
	Repo repository.RequestRepository
}

// CreateRequest handler
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req models.TransportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if req.VehicleCount < 0 {
		writeError(w, http.StatusBadRequest, "vehicle_count cannot be negative")
		return
	}
	if req.RequestedPrice.IsNegative() {
		writeError(w, http.StatusBadRequest, "requested_price cannot be negative")
		return
	}

	if err := h.Repo.CreateRequest(r.Context(), &req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ApiResponse{Success: true, Message: "Request created", Data: req})
}

// GetRequest handler
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid request ID")
		return
	}
	req, err := h.Repo.GetRequest(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: req})
}
