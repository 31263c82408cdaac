package mockapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valueid/valueid-client/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
}

func doRequest(t *testing.T, s *Server, method, path, body, token string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestListFiltersByRentAndName(t *testing.T) {
	s := NewServer(nil, 0, "secret", nil)

	status, env := doRequest(t, s, http.MethodGet, "/api/v1/assets?isForRent=true&name=Value", "", "")
	require.Equal(t, http.StatusOK, status)
	require.True(t, env.Success)

	var page models.Page[models.RawAssetRecord]
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Total)
	var ids []string
	for _, a := range page.List {
		ids = append(ids, a.TokenID)
		assert.Contains(t, a.Name, "Value")
		assert.True(t, a.RentalInfo.IsForRent)
	}
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestListEmptyResult(t *testing.T) {
	s := NewServer(nil, 0, "", nil)

	status, env := doRequest(t, s, http.MethodGet, "/api/v1/assets?name=Nothing+matches", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"list":[],"total":0,"page":1,"pageSize":20}`, string(env.Data))
}

func TestListPagination(t *testing.T) {
	store := NewStore(Fixtures())

	page := store.List(models.ListingQuery{Page: 2, PageSize: 3})
	assert.Equal(t, 7, page.Total)
	require.Len(t, page.List, 3)
	assert.Equal(t, "4", page.List[0].TokenID)

	page = store.List(models.ListingQuery{Page: 9, PageSize: 1000})
	assert.Equal(t, MaxPageSize, page.PageSize)
	assert.Empty(t, page.List)
}

func TestListRejectsBadFlag(t *testing.T) {
	s := NewServer(nil, 0, "", nil)

	status, env := doRequest(t, s, http.MethodGet, "/api/v1/assets?isForSale=maybe", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
}

func TestGetAssetNotFound(t *testing.T) {
	s := NewServer(nil, 0, "", nil)

	status, env := doRequest(t, s, http.MethodGet, "/api/v1/assets/404", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusNotFound, env.Code)
}

func TestOrdersRequireAuth(t *testing.T) {
	s := NewServer(nil, 0, "secret", nil)

	body := `{"tokenId":"6","kind":"sale","price":"1000"}`
	status, env := doRequest(t, s, http.MethodPost, "/api/v1/orders", body, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, 401, env.Code)

	status, _ = doRequest(t, s, http.MethodPost, "/api/v1/orders", body, "wrong")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestOrderLifecycle(t *testing.T) {
	store := NewStore(Fixtures())
	s := NewServer(store, 0, "secret", nil)

	status, env := doRequest(t, s, http.MethodPost, "/api/v1/orders",
		`{"tokenId":"6","kind":"sale","price":"1000","payToken":"0x7169D38820dfd117C3FA1f22a697dBA58d90BA06"}`, "secret")
	require.Equal(t, http.StatusOK, status, env.Message)

	var order models.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, models.OrderStatusOpen, order.Status)
	assert.NotEmpty(t, order.ID)

	asset, err := store.Get("6")
	require.NoError(t, err)
	assert.True(t, asset.SaleInfo.IsForSale)
	assert.Equal(t, "1000", asset.SaleInfo.Price)

	status, _ = doRequest(t, s, http.MethodPost, "/api/v1/orders", `{"tokenId":"6","kind":"sale","price":"5"}`, "secret")
	assert.Equal(t, http.StatusConflict, status)

	status, env = doRequest(t, s, http.MethodPost, "/api/v1/orders/"+order.ID+"/complete", `{"txHash":"0xabc"}`, "secret")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, "0xabc", order.TxHash)

	asset, err = store.Get("6")
	require.NoError(t, err)
	assert.False(t, asset.SaleInfo.IsForSale)

	status, _ = doRequest(t, s, http.MethodPost, "/api/v1/orders/"+order.ID+"/cancel", "", "secret")
	assert.Equal(t, http.StatusConflict, status)
}

func TestOrderValidation(t *testing.T) {
	s := NewServer(nil, 0, "", nil)

	status, _ := doRequest(t, s, http.MethodPost, "/api/v1/orders", `{"tokenId":"6","kind":"swap","price":"1"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, s, http.MethodPost, "/api/v1/orders", `{"tokenId":"6","kind":"rent","price":"1"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, s, http.MethodPost, "/api/v1/orders", `{"tokenId":"99","kind":"sale","price":"1"}`, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFinance(t *testing.T) {
	store := NewStore(nil)
	s := NewServer(store, 0, "", nil)

	status, env := doRequest(t, s, http.MethodPost, "/api/v1/finance/withdraw",
		`{"currency":"usdt","amount":"5","address":"0x5b38da6a701c568545dcfcb03fcb875f56beddc4"}`, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Success)

	status, env = doRequest(t, s, http.MethodPost, "/api/v1/finance/deposit", `{"currency":"usdt","amount":"12.5"}`, "")
	require.Equal(t, http.StatusOK, status, env.Message)
	var record models.FinanceRecord
	require.NoError(t, json.Unmarshal(env.Data, &record))
	assert.Equal(t, "USDT", record.Currency)
	assert.Equal(t, models.FinanceDeposit, record.Kind)

	status, _ = doRequest(t, s, http.MethodPost, "/api/v1/finance/transfer",
		`{"currency":"USDT","amount":"2.5","address":"0x5b38da6a701c568545dcfcb03fcb875f56beddc4"}`, "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decimal.NewFromInt(10).Equal(store.Balance("usdt")))

	status, _ = doRequest(t, s, http.MethodPost, "/api/v1/finance/steal", `{"currency":"USDT","amount":"1"}`, "")
	assert.Equal(t, http.StatusNotFound, status)
}
