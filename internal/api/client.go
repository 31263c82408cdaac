package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"

	"github.com/valueid/valueid-client/internal/metrics"
	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/logger"
)

const (
	PathPrefix = "/api/v1"

	HeaderRequestID = "X-Request-Id"
)

// Envelope is the response body of every endpoint.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
}

// Client is the REST boundary. Every request carries the configured timeout
// and is never retried.
type Client struct {
	cli     *gentleman.Client
	token   string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func New(baseURL string, requestTimeout time.Duration, token string, log *logger.Logger, m *metrics.Metrics) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	cli := gentleman.New().URL(strings.TrimRight(baseURL, "/"))
	cli.Use(timeout.Request(requestTimeout))
	return &Client{cli: cli, token: token, logger: log, metrics: m}
}

// ListAssets queries the listing endpoint. An empty result is an empty page,
// not an error.
func (c *Client) ListAssets(ctx context.Context, query models.ListingQuery) (models.Page[models.RawAssetRecord], error) {
	params := map[string]string{}
	if query.IsForSale != nil {
		params["isForSale"] = strconv.FormatBool(*query.IsForSale)
	}
	if query.IsForRent != nil {
		params["isForRent"] = strconv.FormatBool(*query.IsForRent)
	}
	if query.Name != "" {
		params["name"] = query.Name
	}
	if query.Page > 0 {
		params["page"] = strconv.Itoa(query.Page)
	}
	if query.PageSize > 0 {
		params["pageSize"] = strconv.Itoa(query.PageSize)
	}

	var page models.Page[models.RawAssetRecord]
	if err := c.do(ctx, "list_assets", http.MethodGet, "/assets", params, nil, &page); err != nil {
		return models.Page[models.RawAssetRecord]{}, err
	}
	if page.List == nil {
		page.List = []models.RawAssetRecord{}
	}
	return page, nil
}

func (c *Client) GetAsset(ctx context.Context, id string) (models.RawAssetRecord, error) {
	var record models.RawAssetRecord
	err := c.do(ctx, "get_asset", http.MethodGet, "/assets/"+id, nil, nil, &record)
	return record, err
}

func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	var order models.Order
	err := c.do(ctx, "create_order", http.MethodPost, "/orders", nil, req, &order)
	return order, err
}

func (c *Client) CancelOrder(ctx context.Context, id string) (models.Order, error) {
	var order models.Order
	err := c.do(ctx, "cancel_order", http.MethodPost, "/orders/"+id+"/cancel", nil, struct{}{}, &order)
	return order, err
}

func (c *Client) CompleteOrder(ctx context.Context, id, txHash string) (models.Order, error) {
	body := map[string]string{"txHash": txHash}
	var order models.Order
	err := c.do(ctx, "complete_order", http.MethodPost, "/orders/"+id+"/complete", nil, body, &order)
	return order, err
}

func (c *Client) Deposit(ctx context.Context, req models.FinanceRequest) (models.FinanceRecord, error) {
	return c.finance(ctx, models.FinanceDeposit, req)
}

func (c *Client) Withdraw(ctx context.Context, req models.FinanceRequest) (models.FinanceRecord, error) {
	return c.finance(ctx, models.FinanceWithdraw, req)
}

func (c *Client) Transfer(ctx context.Context, req models.FinanceRequest) (models.FinanceRecord, error) {
	return c.finance(ctx, models.FinanceTransfer, req)
}

func (c *Client) finance(ctx context.Context, kind models.FinanceKind, req models.FinanceRequest) (models.FinanceRecord, error) {
	var record models.FinanceRecord
	err := c.do(ctx, string(kind), http.MethodPost, "/finance/"+string(kind), nil, req, &record)
	return record, err
}

// do sends one request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, endpoint, method, path string, params map[string]string, body, out interface{}) (err error) {
	defer func() { c.metrics.ObserveAPIRequest(endpoint, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}

	requestID := uuid.NewString()
	req := c.cli.Request()
	req.Context.SetCancelContext(ctx)
	req.Method(method)
	req.AddPath(PathPrefix + path)
	req.SetHeader(HeaderRequestID, requestID)
	if c.token != "" {
		req.SetHeader("Authorization", "Bearer "+c.token)
	}
	for k, v := range params {
		req.AddQuery(k, v)
	}
	if body != nil {
		req.JSON(body)
	}

	resp, err := req.Send()
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
		}
		if isTimeout(err) {
			c.logger.Warn("API request timed out", "endpoint", endpoint, "requestId", requestID)
			return fmt.Errorf("%w: %s %s", models.ErrRequestTimeout, method, path)
		}
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Close()

	var env Envelope
	decodeErr := json.Unmarshal(resp.Bytes(), &env)

	if !resp.Ok {
		apiErr := &models.APIError{Code: resp.StatusCode, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if decodeErr == nil {
			if env.Code != 0 {
				apiErr.Code = env.Code
			}
			if env.Message != "" {
				apiErr.Message = env.Message
			}
		}
		c.logger.Debug("API request failed", "endpoint", endpoint, "requestId", requestID, "status", resp.StatusCode, "code", apiErr.Code)
		return apiErr
	}
	if decodeErr != nil {
		return &models.APIError{Code: resp.StatusCode, Status: resp.StatusCode, Message: "invalid response body: " + decodeErr.Error()}
	}
	if !env.Success {
		return &models.APIError{Code: env.Code, Status: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &models.APIError{Code: env.Code, Status: resp.StatusCode, Message: "invalid response data: " + err.Error()}
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Client.Timeout") || strings.Contains(msg, "deadline exceeded")
}
