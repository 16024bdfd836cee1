package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shipmentledger/charges"
	"shipmentledger/models"
)

type MongoTransactionRepo struct {
	DB *mongo.Database
}

func NewMongoTransactionRepo(db *mongo.Database) *MongoTransactionRepo {
	return &MongoTransactionRepo{DB: db}
}

func (r *MongoTransactionRepo) TransactionsByRequest(ctx context.Context, requestID int64) ([]models.Transaction, error) {
	cur, err := r.DB.Collection(transactionCollection).Find(ctx,
		bson.M{"request_id": requestID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var docs []transactionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (r *MongoTransactionRepo) PaymentsByTransaction(ctx context.Context, transactionID int64) ([]models.Payment, error) {
	cur, err := r.DB.Collection(paymentCollection).Find(ctx,
		bson.M{"transaction_id": transactionID},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var docs []paymentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Payment, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

// SavePayment upserts the (request, vehicle) transaction when transactionID is
// nil, then increments its running total and stores the payment. Standalone
// deployments have no multi-document transactions, so the payment is written
// after the total moves.
func (r *MongoTransactionRepo) SavePayment(ctx context.Context, transactionID *int64, in models.PaymentInput) (models.Transaction, error) {
	txs := r.DB.Collection(transactionCollection)
	now := time.Now().UTC()

	var id int64
	if transactionID == nil {
		newID, err := nextID(ctx, r.DB, transactionCollection)
		if err != nil {
			return models.Transaction{}, err
		}
		var opened transactionDoc
		err = txs.FindOneAndUpdate(ctx,
			bson.M{"request_id": in.RequestID, "vehicle_number": charges.NormalizeVehicleNumber(in.VehicleNumber)},
			bson.M{"$setOnInsert": bson.M{
				"_id":          newID,
				"vehicle_id":   in.VehicleID,
				"gr_number":    "",
				"total_amount": toDecimal128(in.AmountOwed),
				"total_paid":   toDecimal128(decimal.Zero),
				"created_at":   now,
			}},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		).Decode(&opened)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("open transaction: %w", err)
		}
		id = opened.ID
	} else {
		id = *transactionID
	}

	if in.GRNumber != "" {
		if _, err := txs.UpdateOne(ctx, bson.M{"_id": id, "gr_number": ""}, bson.M{"$set": bson.M{"gr_number": in.GRNumber}}); err != nil {
			return models.Transaction{}, fmt.Errorf("set gr number: %w", err)
		}
	}

	var doc transactionDoc
	err := txs.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"total_paid": toDecimal128(in.Amount)},
			"$set": bson.M{"last_payment_date": in.Date, "updated_at": now},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Transaction{}, fmt.Errorf("transaction %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}

	paymentID, err := nextID(ctx, r.DB, paymentCollection)
	if err != nil {
		return models.Transaction{}, err
	}
	_, err = r.DB.Collection(paymentCollection).InsertOne(ctx, paymentDoc{
		ID:            paymentID,
		TransactionID: id,
		Amount:        toDecimal128(in.Amount),
		Mode:          in.Mode,
		Date:          in.Date,
		Remarks:       in.Remarks,
	})
	if err != nil {
		return models.Transaction{}, fmt.Errorf("insert payment: %w", err)
	}
	return doc.model(), nil
}
