package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"shipmentledger/models"
	"shipmentledger/reconcile"
	"shipmentledger/repository"
)

type SummaryHandler struct {
	Requests repository.RequestRepository
	Engine   *reconcile.Engine
}

// Summary handler
func (h *SummaryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid request ID")
		return
	}
	req, err := h.Requests.GetRequest(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: h.Engine.GetFinancialSummary(r.Context(), req)})
}

// Report reconciles every request in ?ids=1,2,3. Unknown ids are skipped;
// rows follow the order of the query.
func (h *SummaryHandler) Report(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	found, err := h.Requests.ListRequests(r.Context(), ids)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	byID := make(map[int64]models.TransportRequest, len(found))
	for _, req := range found {
		byID[req.ID] = req
	}
	ordered := make([]models.TransportRequest, 0, len(found))
	for _, id := range ids {
		if req, ok := byID[id]; ok {
			ordered = append(ordered, req)
			delete(byID, id)
		}
	}
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: h.Engine.Report(r.Context(), ordered)})
}

// InvalidateCache handler
func (h *SummaryHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid request ID")
		return
	}
	h.Engine.Invalidate(id)
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Summary cache cleared"})
}

var errMissingIDs = errors.New("ids query parameter is required")

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid request id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errMissingIDs
	}
	return ids, nil
}
