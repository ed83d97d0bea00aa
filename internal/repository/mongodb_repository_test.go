package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/go-storefront/storefront/internal/domain"
)

// setupTestDB starts a single-node replica set so transaction tests work.
func setupTestDB(t *testing.T) (*mongo.Client, *mongo.Database) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := ConnectMongoDB(ctx, uri)
	require.NoError(t, err)

	db := client.Database("testdb")
	require.NoError(t, EnsureIndexes(ctx, db))

	return client, db
}

func seedProduct(t *testing.T, repo ProductRepository, price float64, stock int) *domain.Product {
	t.Helper()
	product := &domain.Product{
		Name:      "widget",
		Price:     price,
		Category:  "tools",
		Stock:     stock,
		Available: true,
	}
	require.NoError(t, repo.CreateProduct(context.Background(), product))
	return product
}

func TestProductRepository_DecrementStock(t *testing.T) {
	_, db := setupTestDB(t)
	repo := NewMongoProductRepository(db)
	ctx := context.Background()

	product := seedProduct(t, repo, 10, 5)

	require.NoError(t, repo.DecrementStock(ctx, product.ID, 3))

	got, err := repo.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)

	// more than remains
	err = repo.DecrementStock(ctx, product.ID, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got, err = repo.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)

	// unknown product
	err = repo.DecrementStock(ctx, NewID(), 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductRepository_DecrementStock_Concurrent(t *testing.T) {
	_, db := setupTestDB(t)
	repo := NewMongoProductRepository(db)
	ctx := context.Background()

	product := seedProduct(t, repo, 10, 1)

	// both want the last unit; the conditional update lets exactly one win
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.DecrementStock(ctx, product.ID, 1)
		}()
	}
	wg.Wait()
	close(errs)

	var ok, insufficient int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)

	got, err := repo.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestCartRepository_AddItemAccumulates(t *testing.T) {
	_, db := setupTestDB(t)
	repo := NewMongoCartRepository(db)
	ctx := context.Background()

	userID := NewID()
	productID := NewID()

	_, err := repo.GetCart(ctx, userID)
	assert.ErrorIs(t, err, ErrCartNotFound)

	// first add creates the cart
	require.NoError(t, repo.AddItem(ctx, userID, domain.CartItem{ProductID: productID, Quantity: 2}))
	// second add for the same product accumulates
	require.NoError(t, repo.AddItem(ctx, userID, domain.CartItem{ProductID: productID, Quantity: 3}))

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartRepository_ReplaceItems(t *testing.T) {
	_, db := setupTestDB(t)
	repo := NewMongoCartRepository(db)
	ctx := context.Background()

	userID := NewID()
	keep := domain.CartItem{ProductID: NewID(), Quantity: 1, AddedAt: time.Now()}

	require.NoError(t, repo.AddItem(ctx, userID, domain.CartItem{ProductID: NewID(), Quantity: 2}))
	require.NoError(t, repo.AddItem(ctx, userID, keep))

	require.NoError(t, repo.ReplaceItems(ctx, userID, []domain.CartItem{keep}))

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, keep.ProductID, cart.Items[0].ProductID)

	// replacing with nil leaves an empty, existing cart
	require.NoError(t, repo.ReplaceItems(ctx, userID, nil))
	cart, err = repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	err = repo.ReplaceItems(ctx, NewID(), nil)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestTicketRepository_DuplicateCode(t *testing.T) {
	_, db := setupTestDB(t)
	repo := NewMongoTicketRepository(db)
	ctx := context.Background()

	ticket := &domain.Ticket{
		Code:             "11111111-2222-3333-4444-555555555555",
		PurchaseDatetime: time.Now().UTC(),
		Amount:           20,
		Purchaser:        "buyer@example.com",
	}
	require.NoError(t, repo.CreateTicket(ctx, ticket))

	dup := &domain.Ticket{
		Code:             ticket.Code,
		PurchaseDatetime: time.Now().UTC(),
		Amount:           5,
		Purchaser:        "other@example.com",
	}
	err := repo.CreateTicket(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateTicketCode)

	got, err := repo.GetTicket(ctx, ticket.Code)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Amount)
	assert.Equal(t, "buyer@example.com", got.Purchaser)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	client, db := setupTestDB(t)
	products := NewMongoProductRepository(db)
	tx := NewMongoTransactor(client)
	ctx := context.Background()

	product := seedProduct(t, products, 10, 5)

	boom := errors.New("boom")
	err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if errDec := products.DecrementStock(txCtx, product.ID, 2); errDec != nil {
			return errDec
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := products.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
}
