package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valueid/valueid-client/internal/metrics"
	"github.com/valueid/valueid-client/internal/mockapi"
	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/logger"
)

const testToken = "secret"

func newFixtureClient(t *testing.T, token string, m *metrics.Metrics) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(mockapi.NewServer(nil, 0, testToken, logger.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, token, logger.NewNop(), m)
}

func boolPtr(v bool) *bool { return &v }

func TestListAssetsRentAndName(t *testing.T) {
	c := newFixtureClient(t, "", nil)

	page, err := c.ListAssets(context.Background(), models.ListingQuery{IsForRent: boolPtr(true), Name: "Value"})
	require.NoError(t, err)

	require.NotEmpty(t, page.List)
	for _, a := range page.List {
		assert.Contains(t, a.Name, "Value")
		require.NotNil(t, a.RentalInfo)
		assert.True(t, a.RentalInfo.IsForRent)
	}
	assert.Equal(t, len(page.List), page.Total)
}

func TestListAssetsEmptyIsTypedList(t *testing.T) {
	m := metrics.New()
	c := newFixtureClient(t, "", m)

	page, err := c.ListAssets(context.Background(), models.ListingQuery{IsForSale: boolPtr(true), Name: "Orbit"})
	require.NoError(t, err)
	assert.NotNil(t, page.List)
	assert.Empty(t, page.List)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.APIRequests().WithLabelValues("list_assets", metrics.ResultOK)))
}

func TestGetAssetNotFound(t *testing.T) {
	c := newFixtureClient(t, "", nil)

	_, err := c.GetAsset(context.Background(), "404")
	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Code)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, models.KindAPIError, models.KindOf(err))
}

func TestOrdersWithAuth(t *testing.T) {
	c := newFixtureClient(t, testToken, nil)
	ctx := context.Background()

	order, err := c.CreateOrder(ctx, models.OrderRequest{TokenID: "6", Kind: models.OrderKindRent, Price: "1000", Periods: 3})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusOpen, order.Status)

	asset, err := c.GetAsset(ctx, "6")
	require.NoError(t, err)
	assert.True(t, asset.RentalInfo.IsForRent)

	order, err = c.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)

	order, err = c.CreateOrder(ctx, models.OrderRequest{TokenID: "6", Kind: models.OrderKindSale, Price: "5"})
	require.NoError(t, err)
	order, err = c.CompleteOrder(ctx, order.ID, "0xfeed")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
}

func TestUnauthorizedIsAPIError(t *testing.T) {
	c := newFixtureClient(t, "", nil)

	_, err := c.Deposit(context.Background(), models.FinanceRequest{Currency: "USDT", Amount: decimal.NewFromInt(1)})
	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Code)
	assert.Equal(t, "unauthorized", apiErr.Message)
}

func TestFinance(t *testing.T) {
	c := newFixtureClient(t, testToken, nil)
	ctx := context.Background()
	to := "0x5b38da6a701c568545dcfcb03fcb875f56beddc4"

	rec, err := c.Deposit(ctx, models.FinanceRequest{Currency: "ETH", Amount: decimal.RequireFromString("1.5")})
	require.NoError(t, err)
	assert.Equal(t, models.FinanceDeposit, rec.Kind)
	assert.True(t, decimal.RequireFromString("1.5").Equal(rec.Amount))

	rec, err = c.Transfer(ctx, models.FinanceRequest{Currency: "ETH", Amount: decimal.RequireFromString("0.5"), Address: to})
	require.NoError(t, err)
	assert.Equal(t, to, rec.Address)

	_, err = c.Withdraw(ctx, models.FinanceRequest{Currency: "ETH", Amount: decimal.NewFromInt(2), Address: to})
	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Code)
}

func TestSuccessFalseWith200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":1003,"message":"asset locked","data":null,"success":false}`))
	}))
	defer srv.Close()
	c := New(srv.URL, time.Second, "", nil, nil)

	_, err := c.GetAsset(context.Background(), "1")
	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1003, apiErr.Code)
	assert.Equal(t, "asset locked", apiErr.Message)
	assert.Equal(t, http.StatusOK, apiErr.Status)
	assert.Equal(t, "asset locked", models.Describe(err))
}

func TestNon2xxWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()
	c := New(srv.URL, time.Second, "", nil, nil)

	_, err := c.ListAssets(context.Background(), models.ListingQuery{})
	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Code)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestRequestHeaders(t *testing.T) {
	var auth, requestID, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, requestID, path = r.Header.Get("Authorization"), r.Header.Get(HeaderRequestID), r.URL.RequestURI()
		_, _ = w.Write([]byte(`{"code":0,"message":"ok","data":{"list":null,"total":0,"page":2,"pageSize":5},"success":true}`))
	}))
	defer srv.Close()
	c := New(srv.URL+"/", time.Second, "tkn", nil, nil)

	page, err := c.ListAssets(context.Background(), models.ListingQuery{IsForSale: boolPtr(false), Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.NotNil(t, page.List)
	assert.Equal(t, "Bearer tkn", auth)
	assert.Len(t, requestID, 36)
	assert.Contains(t, path, "/api/v1/assets?")
	assert.Contains(t, path, "isForSale=false")
	assert.Contains(t, path, "page=2")
	assert.Contains(t, path, "pageSize=5")
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	defer close(release)
	c := New(srv.URL, 50*time.Millisecond, "", nil, nil)

	_, err := c.ListAssets(context.Background(), models.ListingQuery{})
	assert.True(t, errors.Is(err, models.ErrRequestTimeout), "got %v", err)
	assert.Equal(t, models.KindRequestTimeout, models.KindOf(err))
}

func TestCancelledContext(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second, "", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListAssets(ctx, models.ListingQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

func slowServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(1500 * time.Millisecond):
			_, _ = w.Write([]byte(`{"code":0,"data":{"list":[]},"success":true}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCallerDeadlineAbortsInFlightRequest(t *testing.T) {
	c := New(slowServer(t).URL, 10*time.Second, "", nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.ListAssets(ctx, models.ListingQuery{})

	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, models.ErrRequestTimeout)
}

func TestCancelAbortsInFlightRequest(t *testing.T) {
	c := New(slowServer(t).URL, 10*time.Second, "", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := c.ListAssets(ctx, models.ListingQuery{})

	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, models.ErrRequestTimeout)
}
