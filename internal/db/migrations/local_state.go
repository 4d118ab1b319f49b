package migrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/AbdulWasayUl/country-explorer/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createCollectionIfNotExists(ctx context.Context, db *mongo.Database, name string) error {
	if err := db.CreateCollection(ctx, name); err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) {
			if cmdErr.Code != 48 { // 48 = NamespaceExists
				return fmt.Errorf("failed to create collection %s: %w", name, err)
			}
			// Collection already exists → ignore
		} else {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}
	return nil
}

// CreateLocalState creates the key/value collection with a unique key index.
func CreateLocalState(cfg *config.Config) func(ctx context.Context, client *mongo.Client) error {
	return func(ctx context.Context, client *mongo.Client) error {
		db := client.Database(cfg.DBLocalState)
		if err := createCollectionIfNotExists(ctx, db, cfg.CollectionLocalState); err != nil {
			return err
		}

		_, err := db.Collection(cfg.CollectionLocalState).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_key"),
		})
		if err != nil {
			return fmt.Errorf("failed to create key index: %w", err)
		}
		return nil
	}
}

// IndexUpdatedAt adds a descending index used when inspecting recent writes.
func IndexUpdatedAt(cfg *config.Config) func(ctx context.Context, client *mongo.Client) error {
	return func(ctx context.Context, client *mongo.Client) error {
		coll := client.Database(cfg.DBLocalState).Collection(cfg.CollectionLocalState)
		_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("updated_at_desc"),
		})
		if err != nil {
			return fmt.Errorf("failed to create updated_at index: %w", err)
		}
		return nil
	}
}
