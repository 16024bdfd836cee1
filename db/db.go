package db

import (
	"context"
	"fmt"
)

type DBType string

const (
	Postgres DBType = "postgres"
	Mongo    DBType = "mongo"
)

// ParseDBType accepts the DB_TYPE values the service understands.
func ParseDBType(s string) (DBType, error) {
	switch DBType(s) {
	case Postgres, Mongo:
		return DBType(s), nil
	default:
		return "", fmt.Errorf("unsupported DB_TYPE %q", s)
	}
}

type DB interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error
}
