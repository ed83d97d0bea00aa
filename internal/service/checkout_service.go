package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/go-storefront/storefront/internal/cache"
	"github.com/go-storefront/storefront/internal/domain"
	"github.com/go-storefront/storefront/internal/metrics"
	"github.com/go-storefront/storefront/internal/repository"
)

var ErrNoFulfillableItems = errors.New("no products available for purchase")

const (
	// A staged decrement can lose a stock race between the read pass and
	// the commit; the whole checkout is re-run against fresh reads.
	maxCheckoutAttempts = 3

	// Ticket codes are uuid-v4, so a collision is already a surprise.
	maxTicketCodeAttempts = 3
)

// TicketPublisher notifies downstream consumers of a committed purchase.
type TicketPublisher interface {
	PublishTicketCreated(ctx context.Context, ticket *domain.Ticket, userID string) error
}

// CheckoutService reconciles a user's cart against current inventory:
// fulfillable items are charged and their stock decremented, the rest are
// reported and left in the cart.
type CheckoutService struct {
	products repository.ProductRepository
	carts    repository.CartRepository
	tickets  repository.TicketRepository
	tx       repository.Transactor
	cache    cache.CartCache
	events   TicketPublisher
	metrics  *metrics.CheckoutMetrics
}

func NewCheckoutService(
	products repository.ProductRepository,
	carts repository.CartRepository,
	tickets repository.TicketRepository,
	tx repository.Transactor,
	cartCache cache.CartCache,
	events TicketPublisher,
	m *metrics.CheckoutMetrics,
) *CheckoutService {
	return &CheckoutService{
		products: products,
		carts:    carts,
		tickets:  tickets,
		tx:       tx,
		cache:    cartCache,
		events:   events,
		metrics:  m,
	}
}

// Checkout runs the reconciliation pass for userID's cart. The purchaser
// identity comes from the authenticated caller, not from the cart, so the
// billed identity always matches whoever invoked the purchase.
func (s *CheckoutService) Checkout(ctx context.Context, userID, purchaser string) (*domain.CheckoutResult, error) {
	var (
		result *domain.CheckoutResult
		err    error
	)

	for attempt := 1; attempt <= maxCheckoutAttempts; attempt++ {
		result, err = s.attemptCheckout(ctx, userID, purchaser)
		if !isStaleStock(err) {
			break
		}
		log.Printf("checkout for user %s lost a stock race, retrying (attempt %d)", userID, attempt)
	}

	switch {
	case err == nil:
		s.metrics.ObserveSuccess(result.Total, len(result.ProductsUnavailable))
	case errors.Is(err, ErrNoFulfillableItems):
		s.metrics.ObserveFailure("no_fulfillable_items")
	case errors.Is(err, repository.ErrCartNotFound):
		s.metrics.ObserveFailure("cart_not_found")
	default:
		s.metrics.ObserveFailure("error")
	}

	return result, err
}

// isStaleStock reports whether the commit failed because the read pass went
// stale underneath it. Both cases resolve on a re-read: the product either
// shows its reduced stock or is reported as unavailable.
func isStaleStock(err error) bool {
	return errors.Is(err, repository.ErrInsufficientStock) || errors.Is(err, repository.ErrProductNotFound)
}

func (s *CheckoutService) attemptCheckout(ctx context.Context, userID, purchaser string) (*domain.CheckoutResult, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load cart for user %s: %w", userID, err)
	}

	var (
		total       float64
		fulfilled   []domain.CartItem
		remaining   []domain.CartItem
		unavailable = []string{}
	)

	// Reconciliation: one forward pass in the cart's stored order.
	for _, item := range cart.Items {
		product, errGet := s.products.GetProduct(ctx, item.ProductID)
		if errors.Is(errGet, repository.ErrProductNotFound) {
			// The product was deleted after it was added to the cart.
			// It can never be fulfilled, so it is reported and dropped.
			unavailable = append(unavailable, item.ProductID)
			continue
		}
		if errGet != nil {
			return nil, fmt.Errorf("failed to resolve product %s: %w", item.ProductID, errGet)
		}

		if !product.Purchasable(item.Quantity) {
			// Out of stock or flagged unavailable: stays in the cart
			// so a later checkout can pick it up.
			unavailable = append(unavailable, item.ProductID)
			remaining = append(remaining, item)
			continue
		}

		total += product.Price * float64(item.Quantity)
		fulfilled = append(fulfilled, item)
	}

	if len(fulfilled) == 0 {
		// Nothing is consumed, but line items whose product no longer
		// exists are still dropped from the cart.
		if len(remaining) != len(cart.Items) {
			if errReplace := s.carts.ReplaceItems(ctx, userID, remaining); errReplace != nil {
				return nil, fmt.Errorf("failed to drop dead cart items for user %s: %w", userID, errReplace)
			}
			s.invalidateCache(userID)
		}
		return nil, ErrNoFulfillableItems
	}

	ticket := &domain.Ticket{
		Code:             uuid.New().String(),
		PurchaseDatetime: time.Now().UTC(),
		Amount:           total,
		Purchaser:        purchaser,
	}

	// All three mutations commit together: stock decrements, the cart
	// rewrite, and the ticket insert. A failed conditional decrement
	// aborts the transaction so no partial state escapes.
	errCommit := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, item := range fulfilled {
			if errDec := s.products.DecrementStock(txCtx, item.ProductID, item.Quantity); errDec != nil {
				return errDec
			}
		}

		if errReplace := s.carts.ReplaceItems(txCtx, userID, remaining); errReplace != nil {
			return errReplace
		}

		for attempt := 1; ; attempt++ {
			errCreate := s.tickets.CreateTicket(txCtx, ticket)
			if errCreate == nil {
				return nil
			}
			if !errors.Is(errCreate, repository.ErrDuplicateTicketCode) || attempt >= maxTicketCodeAttempts {
				return errCreate
			}
			ticket.ID = ""
			ticket.Code = uuid.New().String()
		}
	})
	if errCommit != nil {
		if isStaleStock(errCommit) {
			return nil, errCommit
		}
		return nil, fmt.Errorf("failed to commit checkout for user %s: %w", userID, errCommit)
	}

	s.invalidateCache(userID)
	s.publishTicket(ticket, userID)

	return &domain.CheckoutResult{
		Total:               total,
		Ticket:              ticket,
		ProductsUnavailable: unavailable,
	}, nil
}

func (s *CheckoutService) invalidateCache(userID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v \n", err)
	}
}

// publishTicket is best effort: a dead broker never fails a committed
// purchase.
func (s *CheckoutService) publishTicket(ticket *domain.Ticket, userID string) {
	if s.events == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.events.PublishTicketCreated(ctx, ticket, userID); err != nil {
			log.Printf("failed to publish ticket %s created event: %v", ticket.Code, err)
		}
	}()
}
