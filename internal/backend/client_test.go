package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_bullion/internal/domain"
	"github.com/fjod/go_bullion/pkg/circuitbreaker"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsJSON = `{"success":true,"data":[
 {"_id":"p1","name":"Gold Bar","metalType":"gold","purity":"24K","weight":{"value":10,"unit":"gram"},"pricePerUnit":65,"totalPrice":650,"stockQuantity":3},
 {"_id":"p2","name":"American Eagle","metalType":"silver","purity":"999","weight":{"value":1,"unit":"ounce"},"pricePerUnit":30,"totalPrice":30,"stockQuantity":0},
 {"_id":"p3","name":"bullion coin","metalType":"gold","purity":"22K","weight":{"value":1,"unit":"ounce"},"pricePerUnit":2100,"totalPrice":2100,"stockQuantity":5,"image":"coin.png"}
]}`

func newTestClient(t *testing.T, h http.Handler) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.Out = io.Discard
	breaker := circuitbreaker.DefaultConfig("test")
	breaker.ConsecutiveFailures = 2
	breaker.Timeout = time.Minute

	c, err := NewClient(Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second, Breaker: breaker}, log)
	require.NoError(t, err)
	return c
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "not a url"}, logrus.New())
	assert.Error(t, err)
}

func TestListProducts_FilterSearchSort(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Write([]byte(productsJSON))
	}))

	products, err := c.ListProducts(context.Background(), Filter{MetalType: domain.MetalGold, Sort: SortPriceHigh})
	require.NoError(t, err)
	assert.Equal(t, "metalType=gold", gotQuery)
	require.Len(t, products, 3)
	assert.Equal(t, "p3", products[0].ID)
	assert.Equal(t, "p2", products[2].ID)

	products, err = c.ListProducts(context.Background(), Filter{MetalType: "all", Search: "BAR", Sort: SortName})
	require.NoError(t, err)
	assert.Empty(t, gotQuery)
	require.Len(t, products, 1)
	assert.Equal(t, "Gold Bar", products[0].Name)

	products, err = c.ListProducts(context.Background(), Filter{Sort: SortName})
	require.NoError(t, err)
	assert.Equal(t, []string{"American Eagle", "bullion coin", "Gold Bar"},
		[]string{products[0].Name, products[1].Name, products[2].Name})
}

func TestListProducts_DecodesSnapshot(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(productsJSON))
	}))

	products, err := c.ListProducts(context.Background(), Filter{Sort: SortPriceLow})
	require.NoError(t, err)

	p := products[1]
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, domain.MetalGold, p.MetalType)
	assert.True(t, decimal.NewFromInt(650).Equal(p.TotalPrice))
	assert.True(t, decimal.NewFromInt(10).Equal(p.Weight.Value))
	assert.Equal(t, domain.UnitGram, p.Weight.Unit)
	assert.Nil(t, p.Image)
	assert.Equal(t, "coin.png", *products[2].Image)
	assert.False(t, products[0].InStock())
}

func TestGetProduct_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"Product not found"}`))
	}))

	_, err := c.GetProduct(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Product not found", UserMessage(err, ""))
}

func TestGetProduct_RequiresID(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	_, err := c.GetProduct(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateOrder_SendsDraftWithToken(t *testing.T) {
	var body map[string]interface{}
	var auth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true,"data":{"_id":"o1","orderNumber":"ORD-1","totalAmount":1300,"orderStatus":"pending",
			"items":[{"product":"p1","quantity":2,"priceAtOrder":500}]}}`))
	}))

	draft := domain.OrderDraft{
		Items: []domain.DraftItem{{Product: "p1", Quantity: 2}},
		ShippingAddress: domain.ShippingAddress{
			Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US",
		},
		PaymentMethod: domain.PaymentCashOnDelivery,
		Notes:         "ring twice",
	}

	ctx := WithToken(context.Background(), "tok-123")
	order, err := c.CreateOrder(ctx, draft)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", auth)
	assert.Equal(t, "o1", order.ID)
	assert.Equal(t, domain.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, "p1", order.Items[0].Product.ID)

	assert.Equal(t, "cod", body["paymentMethod"])
	assert.Equal(t, "ring twice", body["notes"])
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "p1", item["product"])
	assert.Equal(t, float64(2), item["quantity"])
	assert.NotContains(t, item, "price")
	addr := body["shippingAddress"].(map[string]interface{})
	assert.Equal(t, "62701", addr["zipCode"])
}

func TestCreateOrder_RejectedKeepsServerMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"message":"Insufficient stock for Gold Bar"}`))
	}))

	_, err := c.CreateOrder(context.Background(), domain.OrderDraft{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Insufficient stock for Gold Bar", UserMessage(err, "Failed to create order."))
}

func TestClient_ServerErrorsTripBreaker(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"db down"}`))
	}))

	for i := 0; i < 2; i++ {
		_, err := c.MyOrders(context.Background())
		require.Error(t, err)
		assert.Equal(t, "Failed to load orders.", UserMessage(err, "Failed to load orders."))
	}

	_, err := c.MyOrders(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	for i := 0; i < 4; i++ {
		_, err := c.MyAppointments(WithToken(context.Background(), "expired"))
		assert.ErrorIs(t, err, ErrUnauthorized)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestClient_TransportErrorUsesFallback(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL}, logrus.New())
	require.NoError(t, err)

	_, err = c.GetOrder(context.Background(), "o1")
	require.Error(t, err)
	assert.Equal(t, GenericFailureNotice, UserMessage(err, ""))
}

func TestMe_RequiresToken(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMe_ReturnsUserWithAddress(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"_id":"u1","name":"Ada","email":"ada@example.com","role":"user",
			"address":{"street":"1 Main St","city":"Springfield","state":"IL","zipCode":"62701","country":"US"}}}`))
	}))

	user, err := c.Me(WithToken(context.Background(), "tok"))
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	require.NotNil(t, user.Address)
	assert.Equal(t, "Springfield", user.Address.City)
}

func TestLogin_AcceptsTopLevelOrEnvelope(t *testing.T) {
	bodies := []string{
		`{"success":true,"token":"t1","user":{"_id":"u1","name":"Ada"}}`,
		`{"success":true,"data":{"token":"t1","user":{"_id":"u1","name":"Ada"}}}`,
	}
	for _, b := range bodies {
		b := b
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(b))
		}))
		res, err := c.Login(context.Background(), domain.Credentials{Email: "ada@example.com", Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, "t1", res.Token)
		assert.Equal(t, "u1", res.User.ID)
	}
}

func TestCancelAppointment_Path(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/appointments/a1/cancel", r.URL.Path)
		w.Write([]byte(`{"data":{"_id":"a1","status":"cancelled"}}`))
	}))

	appt, err := c.CancelAppointment(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentCancelled, appt.Status)
	assert.False(t, appt.Cancellable())
}

func TestValidateAppointment(t *testing.T) {
	valid := domain.AppointmentRequest{
		MetalType:       domain.MetalSilver,
		EstimatedWeight: domain.Weight{Value: decimal.NewFromFloat(12.5), Unit: domain.UnitGram},
		AppointmentDate: "2026-11-02",
		TimeSlot:        domain.TimeSlots[0],
	}
	require.NoError(t, ValidateAppointment(valid))

	cases := map[string]func(r *domain.AppointmentRequest){
		"metal":  func(r *domain.AppointmentRequest) { r.MetalType = "copper" },
		"weight": func(r *domain.AppointmentRequest) { r.EstimatedWeight.Value = decimal.Zero },
		"unit":   func(r *domain.AppointmentRequest) { r.EstimatedWeight.Unit = "stone" },
		"date":   func(r *domain.AppointmentRequest) { r.AppointmentDate = "" },
		"format": func(r *domain.AppointmentRequest) { r.AppointmentDate = "02/11/2026" },
		"slot":   func(r *domain.AppointmentRequest) { r.TimeSlot = "01:00 PM - 02:00 PM" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := valid
			mutate(&r)
			err := ValidateAppointment(r)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.NotEqual(t, GenericFailureNotice, UserMessage(err, ""))
		})
	}
}

func TestCreateAppointment_ValidatesBeforeSending(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	_, err := c.CreateAppointment(context.Background(), domain.AppointmentRequest{MetalType: "tin"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestGetProduct_EscapesIDOnce(t *testing.T) {
	var gotPath, gotRaw string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRaw = r.URL.EscapedPath()
		w.Write([]byte(`{"success":true,"data":{"_id":"gold bar/1","name":"Gold Bar"}}`))
	}))

	p, err := c.GetProduct(context.Background(), "gold bar/1")
	require.NoError(t, err)
	assert.Equal(t, "Gold Bar", p.Name)
	assert.Equal(t, "/api/products/gold bar/1", gotPath)
	assert.Equal(t, "/api/products/gold%20bar%2F1", gotRaw)
}

func TestUserMessage_ValidationHasNoInternals(t *testing.T) {
	err := ValidateAppointment(domain.AppointmentRequest{MetalType: "copper"})
	assert.Equal(t, `Unknown metal type "copper"`, UserMessage(err, ""))

	c := newTestClient(t, http.NotFoundHandler())
	_, err = c.GetProduct(context.Background(), "")
	assert.Equal(t, "Product id is required", UserMessage(err, ""))
}
