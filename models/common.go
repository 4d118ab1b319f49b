package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// DataRequest is one unit of gateway work: fetch raw bytes, parse them,
// then hand the parsed value to StoreFunc. FailFunc receives the first
// fetch or parse error instead.
type DataRequest struct {
	ID        string
	Service   string
	Ticket    uint64
	FetchFunc func(ctx context.Context, id string) ([]byte, error)
	ParseFunc func([]byte) (interface{}, error)
	StoreFunc func(ctx context.Context, data interface{}) error
	FailFunc  func(ctx context.Context, err error)
}

type RateLimitSettings struct {
	MaxRequests int
	PerDuration time.Duration
}

type Migration struct {
	Name string
	Func func(ctx context.Context, client *mongo.Client) error
}
