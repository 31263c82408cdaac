package mockapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/valueid/valueid-client/internal/models"
)

// ok writes a success envelope.
func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "ok",
		"data":    data,
		"success": true,
	})
}

// fail writes an error envelope.
func fail(c *gin.Context, status, code int, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
		"data":    nil,
		"success": false,
	})
}

func (s *Server) failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		fail(c, http.StatusNotFound, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		fail(c, http.StatusConflict, http.StatusConflict, err.Error())
	case errors.Is(err, ErrBadRequest):
		fail(c, http.StatusBadRequest, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("Mock API handler failed", "path", c.Request.URL.Path, "error", err)
		fail(c, http.StatusInternalServerError, http.StatusInternalServerError, "internal error")
	}
}

// listAssets is a handler for GET /api/v1/assets.
func (s *Server) listAssets(c *gin.Context) {
	var q models.ListingQuery

	for _, f := range []struct {
		key string
		dst **bool
	}{{"isForSale", &q.IsForSale}, {"isForRent", &q.IsForRent}} {
		raw, present := c.GetQuery(f.key)
		if !present || raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, http.StatusBadRequest, "invalid "+f.key+": "+raw)
			return
		}
		*f.dst = &v
	}

	var err error
	if q.Page, err = intQuery(c, "page"); err != nil {
		fail(c, http.StatusBadRequest, http.StatusBadRequest, err.Error())
		return
	}
	if q.PageSize, err = intQuery(c, "pageSize"); err != nil {
		fail(c, http.StatusBadRequest, http.StatusBadRequest, err.Error())
		return
	}
	q.Name = c.Query("name")

	ok(c, s.store.List(q))
}

// getAsset is a handler for GET /api/v1/assets/:id.
func (s *Server) getAsset(c *gin.Context) {
	asset, err := s.store.Get(c.Param("id"))
	if err != nil {
		s.failErr(c, err)
		return
	}
	ok(c, asset)
}

func (s *Server) createOrder(c *gin.Context) {
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		fail(c, http.StatusBadRequest, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := s.store.CreateOrder(req)
	if err != nil {
		s.failErr(c, err)
		return
	}
	s.logger.Info("Order created", "id", order.ID, "tokenId", order.TokenID, "kind", order.Kind)
	ok(c, order)
}

func (s *Server) cancelOrder(c *gin.Context) {
	order, err := s.store.CancelOrder(c.Param("id"))
	if err != nil {
		s.failErr(c, err)
		return
	}
	ok(c, order)
}

type completeRequest struct {
	TxHash string `json:"txHash" binding:"required"`
}

func (s *Server) completeOrder(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := s.store.CompleteOrder(c.Param("id"), req.TxHash)
	if err != nil {
		s.failErr(c, err)
		return
	}
	ok(c, order)
}

// finance is a handler for POST /api/v1/finance/:kind.
func (s *Server) finance(c *gin.Context) {
	kind := models.FinanceKind(c.Param("kind"))
	switch kind {
	case models.FinanceDeposit, models.FinanceWithdraw, models.FinanceTransfer:
	default:
		fail(c, http.StatusNotFound, http.StatusNotFound, "unknown finance action "+string(kind))
		return
	}

	var req models.FinanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	record, err := s.store.RecordFinance(kind, req)
	if err != nil {
		s.failErr(c, err)
		return
	}
	ok(c, record)
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + key + ": " + raw)
	}
	return v, nil
}
