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

type MongoRequestRepo struct {
	DB *mongo.Database
}

func NewMongoRequestRepo(db *mongo.Database) *MongoRequestRepo {
	return &MongoRequestRepo{DB: db}
}

func (r *MongoRequestRepo) CreateRequest(ctx context.Context, req *models.TransportRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = "open"
	}
	if req.ServiceNames == nil {
		req.ServiceNames = []string{}
	}
	id, err := nextID(ctx, r.DB, requestCollection)
	if err != nil {
		return err
	}
	req.ID = id
	_, err = r.DB.Collection(requestCollection).InsertOne(ctx, newRequestDoc(*req))
	return err
}

func (r *MongoRequestRepo) GetRequest(ctx context.Context, id int64) (models.TransportRequest, error) {
	var doc requestDoc
	err := r.DB.Collection(requestCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.TransportRequest{}, fmt.Errorf("request %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.TransportRequest{}, err
	}
	return doc.model(), nil
}

func (r *MongoRequestRepo) ListRequests(ctx context.Context, ids []int64) ([]models.TransportRequest, error) {
	if len(ids) == 0 {
		return []models.TransportRequest{}, nil
	}
	cur, err := r.DB.Collection(requestCollection).Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var docs []requestDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.TransportRequest, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}
