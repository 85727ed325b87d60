package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_bullion/internal/backend"
	"github.com/fjod/go_bullion/internal/cart"
	"github.com/fjod/go_bullion/internal/domain"
	"github.com/fjod/go_bullion/internal/events"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOrders struct {
	mu     sync.Mutex
	drafts []domain.OrderDraft
	order  domain.Order
	err    error
	block  chan struct{}
	called chan struct{}
}

func (m *mockOrders) CreateOrder(ctx context.Context, draft domain.OrderDraft) (domain.Order, error) {
	m.mu.Lock()
	m.drafts = append(m.drafts, draft)
	m.mu.Unlock()
	if m.called != nil {
		close(m.called)
	}
	if m.block != nil {
		<-m.block
	}
	return m.order, m.err
}

type mockPublisher struct {
	events []events.OrderPlaced
	err    error
}

func (m *mockPublisher) PublishOrderPlaced(_ context.Context, ev events.OrderPlaced) error {
	m.events = append(m.events, ev)
	return m.err
}

func (m *mockPublisher) Close() error { return nil }

func validAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		Street:  "1 Main St",
		City:    "Springfield",
		State:   "IL",
		ZipCode: "62701",
		Country: "USA",
	}
}

func filledCart() *cart.Store {
	c := cart.NewStore()
	a := domain.ProductSnapshot{ID: "A", Name: "Gold Bar", TotalPrice: decimal.NewFromInt(500)}
	b := domain.ProductSnapshot{ID: "B", Name: "Silver Coin", TotalPrice: decimal.NewFromInt(300)}
	c.AddToCart(a)
	c.AddToCart(a)
	c.AddToCart(b)
	return c
}

func newTestFlow(orders OrderSubmitter, pub events.Publisher) *Flow {
	log, _ := test.NewNullLogger()
	return NewFlow(orders, pub, log)
}

func TestSubmitOrder_SuccessClearsCart(t *testing.T) {
	orders := &mockOrders{order: domain.Order{ID: "o1", OrderNumber: "ORD-1"}}
	pub := &mockPublisher{}
	flow := newTestFlow(orders, pub)
	c := filledCart()

	res, err := flow.SubmitOrder(context.Background(), "s1", c, Input{
		ShippingAddress: validAddress(),
		PaymentMethod:   domain.PaymentCashOnDelivery,
		Notes:           "leave at door",
	})
	require.NoError(t, err)

	assert.Equal(t, "o1", res.Order.ID)
	assert.Equal(t, ConfirmationRoute, res.Redirect)
	assert.True(t, c.IsEmpty())
	assert.True(t, c.GetTotal().IsZero())
	assert.Equal(t, StatusIdle, flow.Status("s1"))

	require.Len(t, orders.drafts, 1)
	draft := orders.drafts[0]
	assert.Equal(t, []domain.DraftItem{{Product: "A", Quantity: 2}, {Product: "B", Quantity: 1}}, draft.Items)
	assert.Equal(t, validAddress(), draft.ShippingAddress)
	assert.Equal(t, domain.PaymentCashOnDelivery, draft.PaymentMethod)
	assert.Equal(t, "leave at door", draft.Notes)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "o1", pub.events[0].OrderID)
	assert.Equal(t, "s1", pub.events[0].SessionID)
	assert.Len(t, pub.events[0].Items, 2)
}

func TestSubmitOrder_FinishedAttemptsAreNotRetained(t *testing.T) {
	orders := &mockOrders{order: domain.Order{ID: "o1", OrderNumber: "ORD-1"}}
	flow := newTestFlow(orders, nil)

	for i := 0; i < 50; i++ {
		_, err := flow.SubmitOrder(context.Background(), fmt.Sprintf("s%d", i), filledCart(), Input{
			ShippingAddress: validAddress(),
			PaymentMethod:   domain.PaymentCashOnDelivery,
		})
		require.NoError(t, err)
	}

	flow.mu.Lock()
	defer flow.mu.Unlock()
	assert.Empty(t, flow.attempts.states)
}

func TestSubmitOrder_NetworkFailureLeavesCartUntouched(t *testing.T) {
	orders := &mockOrders{err: errors.New("dial tcp: connection refused")}
	pub := &mockPublisher{}
	flow := newTestFlow(orders, pub)
	c := filledCart()
	before := c.Lines()

	_, err := flow.SubmitOrder(context.Background(), "s1", c, Input{ShippingAddress: validAddress()})

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, FailureNotice, failure.Notice)
	assert.Equal(t, before, c.Lines())
	assert.True(t, decimal.NewFromInt(1300).Equal(c.GetTotal()))
	assert.Equal(t, StatusIdle, flow.Status("s1"))
	assert.Empty(t, pub.events)
}

func TestSubmitOrder_ServerRejectionSurfacesMessage(t *testing.T) {
	orders := &mockOrders{err: &backend.APIError{Status: http.StatusBadRequest, Message: "Insufficient stock for Gold Bar"}}
	flow := newTestFlow(orders, nil)
	c := filledCart()

	_, err := flow.SubmitOrder(context.Background(), "s1", c, Input{ShippingAddress: validAddress()})

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "Insufficient stock for Gold Bar", failure.Notice)
	assert.Equal(t, 3, c.Count())
}

func TestSubmitOrder_ResubmitAfterFailure(t *testing.T) {
	orders := &mockOrders{err: errors.New("timeout")}
	flow := newTestFlow(orders, nil)
	c := filledCart()
	in := Input{ShippingAddress: validAddress()}

	_, err := flow.SubmitOrder(context.Background(), "s1", c, in)
	require.Error(t, err)

	orders.err = nil
	orders.order = domain.Order{ID: "o2"}
	res, err := flow.SubmitOrder(context.Background(), "s1", c, in)
	require.NoError(t, err)
	assert.Equal(t, "o2", res.Order.ID)
	assert.True(t, c.IsEmpty())
	assert.Len(t, orders.drafts, 2)
}

func TestSubmitOrder_EmptyCart(t *testing.T) {
	orders := &mockOrders{}
	flow := newTestFlow(orders, nil)

	_, err := flow.SubmitOrder(context.Background(), "s1", cart.NewStore(), Input{ShippingAddress: validAddress()})
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, orders.drafts)
}

func TestSubmitOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   Input
		wantErr error
	}{
		{
			name:    "unsupported payment",
			input:   Input{ShippingAddress: validAddress(), PaymentMethod: "card"},
			wantErr: ErrUnsupportedPaymentMethod,
		},
		{
			name:    "missing zip",
			input:   Input{ShippingAddress: domain.ShippingAddress{Street: "1", City: "c", State: "s", Country: "x"}},
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "empty address",
			input:   Input{},
			wantErr: ErrInvalidAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := &mockOrders{}
			flow := newTestFlow(orders, nil)
			c := filledCart()

			_, err := flow.SubmitOrder(context.Background(), "s1", c, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, orders.drafts)
			assert.Equal(t, 3, c.Count())
		})
	}
}

func TestSubmitOrder_RejectsConcurrentSubmission(t *testing.T) {
	orders := &mockOrders{
		order:  domain.Order{ID: "o1"},
		block:  make(chan struct{}),
		called: make(chan struct{}),
	}
	flow := newTestFlow(orders, nil)
	c := filledCart()
	in := Input{ShippingAddress: validAddress()}

	done := make(chan error, 1)
	go func() {
		_, err := flow.SubmitOrder(context.Background(), "s1", c, in)
		done <- err
	}()

	select {
	case <-orders.called:
	case <-time.After(2 * time.Second):
		t.Fatal("first submission never reached the backend")
	}
	assert.Equal(t, StatusSubmitting, flow.Status("s1"))

	_, err := flow.SubmitOrder(context.Background(), "s1", c, in)
	assert.ErrorIs(t, err, ErrSubmissionInProgress)

	close(orders.block)
	require.NoError(t, <-done)
	assert.Len(t, orders.drafts, 1)
	assert.True(t, c.IsEmpty())
}

func TestSubmitOrder_PublishFailureDoesNotFailOrder(t *testing.T) {
	orders := &mockOrders{order: domain.Order{ID: "o1"}}
	pub := &mockPublisher{err: errors.New("kafka down")}
	flow := newTestFlow(orders, pub)
	c := filledCart()

	res, err := flow.SubmitOrder(context.Background(), "s1", c, Input{ShippingAddress: validAddress()})
	require.NoError(t, err)
	assert.Equal(t, "o1", res.Order.ID)
	assert.True(t, c.IsEmpty())
}

func TestFailure_Unwrap(t *testing.T) {
	cause := &backend.APIError{Status: http.StatusUnauthorized, Message: "Not authorized"}
	err := error(&Failure{Notice: "Not authorized", Err: cause})

	assert.ErrorIs(t, err, backend.ErrUnauthorized)
	assert.Contains(t, err.Error(), "order submission failed")
}

func TestPrefill(t *testing.T) {
	assert.Equal(t, Input{PaymentMethod: domain.PaymentCashOnDelivery}, Prefill(nil))

	addr := validAddress()
	in := Prefill(&domain.User{Name: "Ann", Address: &addr})
	assert.Equal(t, addr, in.ShippingAddress)
	assert.Equal(t, domain.PaymentCashOnDelivery, in.PaymentMethod)

	in = Prefill(&domain.User{Name: "Bob"})
	assert.Equal(t, domain.ShippingAddress{}, in.ShippingAddress)
}
