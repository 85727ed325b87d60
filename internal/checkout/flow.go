package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_bullion/internal/backend"
	"github.com/fjod/go_bullion/internal/domain"
	"github.com/fjod/go_bullion/internal/events"
	"github.com/sirupsen/logrus"
)

// ConfirmationRoute is where the customer lands after a placed order.
const ConfirmationRoute = "/my-orders"

const publishTimeout = 5 * time.Second

type OrderSubmitter interface {
	CreateOrder(ctx context.Context, draft domain.OrderDraft) (domain.Order, error)
}

// Cart is the part of the session cart checkout reads and clears.
type Cart interface {
	Lines() []domain.CartLine
	IsEmpty() bool
	ClearCart()
}

type Input struct {
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   domain.PaymentMethod   `json:"paymentMethod"`
	Notes           string                 `json:"notes"`
}

type Result struct {
	Order    domain.Order `json:"order"`
	Redirect string       `json:"redirect"`
}

type Flow struct {
	orders    OrderSubmitter
	publisher events.Publisher
	log       logrus.FieldLogger
	now       func() time.Time

	mu       sync.Mutex
	attempts tracker
}

func NewFlow(orders OrderSubmitter, publisher events.Publisher, log logrus.FieldLogger) *Flow {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Flow{
		orders:    orders,
		publisher: publisher,
		log:       log,
		now:       time.Now,
		attempts:  newTracker(),
	}
}

func (f *Flow) Status(sessionID string) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts.get(sessionID)
}

// SubmitOrder turns the session cart into one order request. The cart is cleared
// only after the backend accepted the order.
func (f *Flow) SubmitOrder(ctx context.Context, sessionID string, c Cart, in Input) (Result, error) {
	if c.IsEmpty() {
		return Result{}, ErrEmptyCart
	}

	draft, err := buildDraft(c.Lines(), in)
	if err != nil {
		return Result{}, err
	}
	if len(draft.Items) == 0 {
		return Result{}, ErrEmptyCart
	}

	f.mu.Lock()
	started := f.attempts.begin(sessionID)
	f.mu.Unlock()
	if !started {
		return Result{}, ErrSubmissionInProgress
	}

	log := f.log.WithField("session_id", sessionID)

	order, err := f.orders.CreateOrder(ctx, draft)
	if err != nil {
		f.mu.Lock()
		f.attempts.finish(sessionID)
		f.mu.Unlock()

		log.WithError(err).Warn("order submission failed")
		return Result{}, &Failure{
			Notice: backend.UserMessage(err, FailureNotice),
			Err:    err,
		}
	}

	c.ClearCart()

	f.mu.Lock()
	f.attempts.finish(sessionID)
	f.mu.Unlock()

	log.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"items":        len(draft.Items),
	}).Info("order placed")

	f.announce(ctx, sessionID, order, draft)

	return Result{Order: order, Redirect: ConfirmationRoute}, nil
}

func (f *Flow) announce(ctx context.Context, sessionID string, order domain.Order, draft domain.OrderDraft) {
	items := make([]events.PlacedItem, 0, len(draft.Items))
	for _, it := range draft.Items {
		items = append(items, events.PlacedItem{ProductID: it.Product, Quantity: it.Quantity})
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	ev := events.NewOrderPlaced(order.ID, order.OrderNumber, sessionID, items, f.now())
	if err := f.publisher.PublishOrderPlaced(pubCtx, ev); err != nil {
		f.log.WithError(err).WithField("order_id", order.ID).Error("failed to publish order placed event")
	}
}

func buildDraft(lines []domain.CartLine, in Input) (domain.OrderDraft, error) {
	method := in.PaymentMethod
	if method == "" {
		method = domain.PaymentCashOnDelivery
	}
	if method != domain.PaymentCashOnDelivery {
		return domain.OrderDraft{}, fmt.Errorf("%w: %q", ErrUnsupportedPaymentMethod, method)
	}
	if !in.ShippingAddress.Complete() {
		return domain.OrderDraft{}, ErrInvalidAddress
	}

	items := make([]domain.DraftItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.DraftItem{Product: l.ProductID, Quantity: l.Quantity})
	}

	return domain.OrderDraft{
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   method,
		Notes:           in.Notes,
	}, nil
}

// Prefill returns the checkout form defaults for a signed-in customer.
func Prefill(user *domain.User) Input {
	in := Input{PaymentMethod: domain.PaymentCashOnDelivery}
	if user != nil && user.Address != nil {
		in.ShippingAddress = *user.Address
	}
	return in
}
