package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"shipmentledger/assignment"
	"shipmentledger/logger"
	"shipmentledger/models"
	"shipmentledger/repository"
	"shipmentledger/submission"
)

// Invalidator drops cached reconciliation data of a request.
type Invalidator interface {
	Invalidate(requestID int64)
}

type AssignmentHandler struct {
	Repo         repository.AssignmentRepository
	Requests     repository.RequestRepository
	Orchestrator *submission.Orchestrator
	Cache        Invalidator
	Logger       *zap.Logger
}

// TransporterDetails handler
func (h *AssignmentHandler) TransporterDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid request ID")
		return
	}
	recs, err := h.Repo.TransporterDetails(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: recs})
}

// CreateAssignment handler
func (h *AssignmentHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid request ID")
		return
	}
	var rec models.AssignmentRecord
	if err := decodeBody(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	saved, err := h.Repo.CreateAssignment(r.Context(), id, rec)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.Cache.Invalidate(id)
	writeJSON(w, http.StatusCreated, ApiResponse{Success: true, Message: "Assignment created", Data: saved})
}

// UpdateAssignment handler
func (h *AssignmentHandler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid assignment ID")
		return
	}
	var rec models.AssignmentRecord
	if err := decodeBody(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	saved, err := h.Repo.UpdateAssignment(r.Context(), id, rec)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.Cache.Invalidate(saved.RequestID)
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Assignment updated", Data: saved})
}

type batchRequest struct {
	Assignments []models.AssignmentRecord `json:"assignments"`
}

type batchResult struct {
	Assignments  []models.AssignmentRecord `json:"assignments"`
	SuccessCount int                       `json:"success_count"`
	FailureCount int                       `json:"failure_count"`
	Failures     []submission.Failure      `json:"failures,omitempty"`
}

// SubmitBatch saves a request's whole assignment list, one entry per declared
// vehicle. Validation failures answer 400 before anything is written; a
// partially saved batch answers 207.
func (h *AssignmentHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid request ID")
		return
	}
	var body batchRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	req, err := h.Requests.GetRequest(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if len(body.Assignments) != req.VehicleCount {
		verr := &models.ValidationError{}
		verr.Add("request declares %d vehicles but %d assignments were submitted", req.VehicleCount, len(body.Assignments))
		writeServiceError(w, verr)
		return
	}

	decoded := make([]models.VehicleAssignment, len(body.Assignments))
	for i, rec := range body.Assignments {
		decoded[i] = models.AssignmentFromRecord(rec, req.ServiceNames)
	}
	// positions become the vehicle indexes and every entry belongs to this request
	list := assignment.NewManager(id, req.VehicleCount, req.ServiceNames).Replace(decoded)

	res, err := h.Orchestrator.SubmitAll(r.Context(), id, list)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := batchResult{
		Assignments:  make([]models.AssignmentRecord, len(res.Updated)),
		SuccessCount: res.SuccessCount,
		FailureCount: res.FailureCount,
		Failures:     res.Failures,
	}
	for i, v := range res.Updated {
		out.Assignments[i] = v.ToRecord()
	}

	if res.Complete() {
		writeJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "All vehicle assignments saved", Data: out})
		return
	}
	logger.OrNop(h.Logger).Warn("batch partially saved", zap.Int64("request_id", id), zap.Ints("failed_vehicles", res.FailedIndexes()))
	writeJSON(w, http.StatusMultiStatus, ApiResponse{
		Success: false,
		Message: "Some vehicle assignments could not be saved",
		Data:    out,
	})
}
