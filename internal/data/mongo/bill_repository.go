package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tabsplit/internal/domain/bill"
)

const (
	// BillCollectionName is the collection the point-of-sale writes bills to
	BillCollectionName = "bills"
)

// BillRepository implements the bill.Repository interface for MongoDB
type BillRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewBillRepository creates a new MongoDB bill repository
func NewBillRepository(logger *slog.Logger, db *mongo.Database) bill.Repository {
	return &BillRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a bill. Returns ErrBillNotFound if the point-of-sale has not published it.
func (r *BillRepository) GetByID(ctx context.Context, id string) (*bill.Bill, error) {
	collection := r.db.Collection(BillCollectionName)

	var b bill.Bill
	err := collection.FindOne(ctx, bson.M{"bill_id": id}).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bill.ErrBillNotFound{BillID: id}
		}
		r.logger.Error("Failed to get bill",
			"bill_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	return &b, nil
}
