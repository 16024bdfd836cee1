package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shipmentledger/charges"
	"shipmentledger/models"
)

const (
	requestCollection     = "transport_request"
	assignmentCollection  = "vehicle_assignment"
	transactionCollection = "vehicle_transaction"
	paymentCollection     = "payment"
	counterCollection     = "counters"
)

// nextID hands out int64 ids per collection so both backends share one id space shape.
func nextID(ctx context.Context, db *mongo.Database, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := db.Collection(counterCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	return doc.Seq, err
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	return charges.ParseAmount(v.String())
}

type requestDoc struct {
	ID             int64                `bson:"_id"`
	RequestedPrice primitive.Decimal128 `bson:"requested_price"`
	VehicleCount   int                  `bson:"vehicle_count"`
	ServiceNames   []string             `bson:"service_names"`
	FromLocation   string               `bson:"from_location"`
	ToLocation     string               `bson:"to_location"`
	Status         string               `bson:"status"`
	CreatedAt      time.Time            `bson:"created_at"`
}

func newRequestDoc(req models.TransportRequest) requestDoc {
	return requestDoc{
		ID:             req.ID,
		RequestedPrice: toDecimal128(req.RequestedPrice),
		VehicleCount:   req.VehicleCount,
		ServiceNames:   req.ServiceNames,
		FromLocation:   req.FromLocation,
		ToLocation:     req.ToLocation,
		Status:         req.Status,
		CreatedAt:      req.CreatedAt,
	}
}

func (d requestDoc) model() models.TransportRequest {
	names := d.ServiceNames
	if names == nil {
		names = []string{}
	}
	return models.TransportRequest{
		ID:             d.ID,
		RequestedPrice: fromDecimal128(d.RequestedPrice),
		VehicleCount:   d.VehicleCount,
		ServiceNames:   names,
		FromLocation:   d.FromLocation,
		ToLocation:     d.ToLocation,
		Status:         d.Status,
		CreatedAt:      d.CreatedAt,
	}
}

type containerDoc struct {
	ContainerNo        string `bson:"container_no,omitempty"`
	Line               string `bson:"line,omitempty"`
	SealNo             string `bson:"seal_no,omitempty"`
	Seal1              string `bson:"seal1,omitempty"`
	Seal2              string `bson:"seal2,omitempty"`
	NumberOfContainers int    `bson:"number_of_containers,omitempty"`
	TareWeight         string `bson:"tare_weight,omitempty"`
	GrossWeight        string `bson:"gross_weight,omitempty"`
	NetWeight          string `bson:"net_weight,omitempty"`
	ContainerType      string `bson:"container_type,omitempty"`
	ContainerSize      string `bson:"container_size,omitempty"`
}

// assignmentDoc keeps service charges as a sub-document of Decimal128 values.
type assignmentDoc struct {
	ID                int64                           `bson:"_id"`
	RequestID         int64                           `bson:"request_id"`
	VehicleIndex      int                             `bson:"vehicle_index"`
	VehicleNumber     string                          `bson:"vehicle_number"`
	TransporterName   string                          `bson:"transporter_name"`
	DriverName        string                          `bson:"driver_name"`
	DriverContact     string                          `bson:"driver_contact"`
	LicenseNumber     string                          `bson:"license_number"`
	LicenseExpiry     string                          `bson:"license_expiry"`
	BaseCharge        primitive.Decimal128            `bson:"base_charge"`
	AdditionalCharges primitive.Decimal128            `bson:"additional_charges"`
	ServiceCharges    map[string]primitive.Decimal128 `bson:"service_charges"`
	TotalCharge       primitive.Decimal128            `bson:"total_charge"`
	Container         containerDoc                    `bson:"container"`
	CreatedAt         time.Time                       `bson:"created_at"`
	UpdatedAt         *time.Time                      `bson:"updated_at,omitempty"`
}

func newAssignmentDoc(rec models.AssignmentRecord) assignmentDoc {
	v := models.AssignmentFromRecord(rec, nil)
	services := make(map[string]primitive.Decimal128, len(v.ServiceCharges))
	for name, amount := range v.ServiceCharges {
		services[name] = toDecimal128(amount)
	}
	doc := assignmentDoc{
		RequestID:         rec.RequestID,
		VehicleIndex:      rec.VehicleIndex,
		VehicleNumber:     rec.VehicleNumber,
		TransporterName:   rec.TransporterName,
		DriverName:        rec.DriverName,
		DriverContact:     rec.DriverContact,
		LicenseNumber:     rec.LicenseNumber,
		LicenseExpiry:     rec.LicenseExpiry,
		BaseCharge:        toDecimal128(v.BaseCharge),
		AdditionalCharges: toDecimal128(v.AdditionalCharges),
		ServiceCharges:    services,
		TotalCharge:       toDecimal128(v.TotalCharge()),
		Container:         containerDoc(rec.ContainerDetails),
		UpdatedAt:         rec.UpdatedAt,
	}
	if rec.ID != nil {
		doc.ID = *rec.ID
	}
	if rec.CreatedAt != nil {
		doc.CreatedAt = *rec.CreatedAt
	}
	return doc
}

func (d assignmentDoc) record() models.AssignmentRecord {
	services := make(charges.ServiceCharges, len(d.ServiceCharges))
	for name, amount := range d.ServiceCharges {
		services[name] = fromDecimal128(amount)
	}
	id := d.ID
	createdAt := d.CreatedAt
	return models.AssignmentRecord{
		ID:                &id,
		RequestID:         d.RequestID,
		VehicleIndex:      d.VehicleIndex,
		VehicleNumber:     d.VehicleNumber,
		TransporterName:   d.TransporterName,
		DriverName:        d.DriverName,
		DriverContact:     d.DriverContact,
		LicenseNumber:     d.LicenseNumber,
		LicenseExpiry:     d.LicenseExpiry,
		BaseCharge:        models.TextAmount(fromDecimal128(d.BaseCharge).String()),
		AdditionalCharges: models.TextAmount(fromDecimal128(d.AdditionalCharges).String()),
		ServiceCharges:    services.Encode(),
		TotalCharge:       models.TextAmount(fromDecimal128(d.TotalCharge).String()),
		ContainerDetails:  models.ContainerDetails(d.Container),
		CreatedAt:         &createdAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

type transactionDoc struct {
	ID              int64                `bson:"_id"`
	RequestID       int64                `bson:"request_id"`
	VehicleNumber   string               `bson:"vehicle_number"`
	VehicleID       int64                `bson:"vehicle_id"`
	GRNumber        string               `bson:"gr_number"`
	TotalAmount     primitive.Decimal128 `bson:"total_amount"`
	TotalPaid       primitive.Decimal128 `bson:"total_paid"`
	LastPaymentDate *time.Time           `bson:"last_payment_date,omitempty"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       *time.Time           `bson:"updated_at,omitempty"`
}

func (d transactionDoc) model() models.Transaction {
	return models.Transaction{
		ID:              d.ID,
		RequestID:       d.RequestID,
		VehicleNumber:   d.VehicleNumber,
		VehicleID:       d.VehicleID,
		GRNumber:        d.GRNumber,
		TotalAmount:     fromDecimal128(d.TotalAmount),
		TotalPaid:       fromDecimal128(d.TotalPaid),
		LastPaymentDate: d.LastPaymentDate,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type paymentDoc struct {
	ID            int64                `bson:"_id"`
	TransactionID int64                `bson:"transaction_id"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Mode          string               `bson:"mode"`
	Date          time.Time            `bson:"date"`
	Remarks       string               `bson:"remarks,omitempty"`
}

func (d paymentDoc) model() models.Payment {
	return models.Payment{
		ID:            d.ID,
		TransactionID: d.TransactionID,
		Amount:        fromDecimal128(d.Amount),
		Mode:          d.Mode,
		Date:          d.Date,
		Remarks:       d.Remarks,
	}
}
