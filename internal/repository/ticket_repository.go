package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/go-storefront/storefront/internal/domain"
)

var (
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrDuplicateTicketCode = errors.New("ticket code already exists")
)

// TicketRepository is append-only: tickets are created and read, never
// updated or deleted.
type TicketRepository interface {
	CreateTicket(ctx context.Context, ticket *domain.Ticket) error
	GetTicket(ctx context.Context, code string) (*domain.Ticket, error)
}

type mongoTicketRepository struct {
	collection *mongo.Collection
}

func NewMongoTicketRepository(db *mongo.Database) TicketRepository {
	return &mongoTicketRepository{
		collection: db.Collection("tickets"),
	}
}

func (m *mongoTicketRepository) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = NewID()
	}

	_, err := m.collection.InsertOne(ctx, ticket)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateTicketCode
		}
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	return nil
}

func (m *mongoTicketRepository) GetTicket(ctx context.Context, code string) (*domain.Ticket, error) {
	var ticket domain.Ticket

	err := m.collection.FindOne(ctx, bson.M{"code": code}).Decode(&ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return &ticket, nil
}

func (m *mongoTicketRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "purchaser", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create ticket indexes: %w", err)
	}

	return nil
}
