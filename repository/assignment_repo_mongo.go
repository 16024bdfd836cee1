package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shipmentledger/models"
)

type MongoAssignmentRepo struct {
	DB *mongo.Database
}

func NewMongoAssignmentRepo(db *mongo.Database) *MongoAssignmentRepo {
	return &MongoAssignmentRepo{DB: db}
}

func (r *MongoAssignmentRepo) TransporterDetails(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error) {
	cur, err := r.DB.Collection(assignmentCollection).Find(ctx,
		bson.M{"request_id": requestID},
		options.Find().SetSort(bson.D{{Key: "vehicle_index", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var docs []assignmentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.AssignmentRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.record())
	}
	return out, nil
}

func (r *MongoAssignmentRepo) CreateAssignment(ctx context.Context, requestID int64, rec models.AssignmentRecord) (models.AssignmentRecord, error) {
	id, err := nextID(ctx, r.DB, assignmentCollection)
	if err != nil {
		return models.AssignmentRecord{}, err
	}
	now := time.Now().UTC()
	rec.ID = &id
	rec.RequestID = requestID
	rec.CreatedAt = &now
	rec.UpdatedAt = nil

	doc := newAssignmentDoc(rec)
	if _, err := r.DB.Collection(assignmentCollection).InsertOne(ctx, doc); err != nil {
		return models.AssignmentRecord{}, fmt.Errorf("insert assignment for request %d: %w", requestID, err)
	}
	return doc.record(), nil
}

func (r *MongoAssignmentRepo) UpdateAssignment(ctx context.Context, assignmentID int64, rec models.AssignmentRecord) (models.AssignmentRecord, error) {
	now := time.Now().UTC()
	rec.UpdatedAt = &now
	doc := newAssignmentDoc(rec)

	var updated assignmentDoc
	err := r.DB.Collection(assignmentCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": assignmentID},
		bson.M{"$set": bson.M{
			"vehicle_index":      doc.VehicleIndex,
			"vehicle_number":     doc.VehicleNumber,
			"transporter_name":   doc.TransporterName,
			"driver_name":        doc.DriverName,
			"driver_contact":     doc.DriverContact,
			"license_number":     doc.LicenseNumber,
			"license_expiry":     doc.LicenseExpiry,
			"base_charge":        doc.BaseCharge,
			"additional_charges": doc.AdditionalCharges,
			"service_charges":    doc.ServiceCharges,
			"total_charge":       doc.TotalCharge,
			"container":          doc.Container,
			"updated_at":         now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.AssignmentRecord{}, fmt.Errorf("assignment %d: %w", assignmentID, models.ErrNotFound)
	}
	if err != nil {
		return models.AssignmentRecord{}, fmt.Errorf("update assignment %d: %w", assignmentID, err)
	}
	return updated.record(), nil
}
