package repository

import (
	"context"

	"shipmentledger/models"
)

// RequestRepository stores transport requests.
type RequestRepository interface {
	CreateRequest(ctx context.Context, req *models.TransportRequest) error
	GetRequest(ctx context.Context, id int64) (models.TransportRequest, error)
	// ListRequests returns the requests found among ids, in no particular order.
	ListRequests(ctx context.Context, ids []int64) ([]models.TransportRequest, error)
}

// AssignmentRepository stores vehicle assignments. Writes persist the total
// derived from the charge components, whatever total the caller sent.
type AssignmentRepository interface {
	TransporterDetails(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error)
	CreateAssignment(ctx context.Context, requestID int64, rec models.AssignmentRecord) (models.AssignmentRecord, error)
	UpdateAssignment(ctx context.Context, assignmentID int64, rec models.AssignmentRecord) (models.AssignmentRecord, error)
}

// TransactionRepository stores the payment ledger. There is at most one
// transaction per request and vehicle number.
type TransactionRepository interface {
	TransactionsByRequest(ctx context.Context, requestID int64) ([]models.Transaction, error)
	PaymentsByTransaction(ctx context.Context, transactionID int64) ([]models.Payment, error)
	SavePayment(ctx context.Context, transactionID *int64, in models.PaymentInput) (models.Transaction, error)
}

// Repositories groups one backend's implementations.
type Repositories struct {
	Requests     RequestRepository
	Assignments  AssignmentRepository
	Transactions TransactionRepository
}

// canonical re-derives the record through the domain type so the stored
// amounts are normalized and total_charge equals the sum of its parts.
func canonical(rec models.AssignmentRecord) models.AssignmentRecord {
	out := models.AssignmentFromRecord(rec, nil).ToRecord()
	out.ID = rec.ID
	out.CreatedAt = rec.CreatedAt
	out.UpdatedAt = rec.UpdatedAt
	return out
}
