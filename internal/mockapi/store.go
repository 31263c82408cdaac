package mockapi

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/validation"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var (
	ErrNotFound   = errors.New("not_found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad_request")
)

// Journal persists order and finance changes. Writes happen before the
// in-memory state changes, so a failed write leaves the store untouched.
type Journal interface {
	SaveOrder(order models.Order) error
	SaveFinance(record models.FinanceRecord) error
}

// Store is the fixture server's in-memory state. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	assets  []models.RawAssetRecord
	index   map[string]int
	orders  map[string]models.Order
	finance []models.FinanceRecord
	journal Journal
	now     func() time.Time
}

func NewStore(assets []models.RawAssetRecord) *Store {
	s := &Store{
		assets: make([]models.RawAssetRecord, 0, len(assets)),
		index:  make(map[string]int, len(assets)),
		orders: map[string]models.Order{},
		now:    time.Now,
	}
	for _, a := range assets {
		s.index[a.TokenID] = len(s.assets)
		s.assets = append(s.assets, a)
	}
	return s
}

func (s *Store) SetJournal(j Journal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = j
}

// Restore replays persisted orders and finance records. Open orders list
// their asset again; closed ones leave the fixture listing as is.
func (s *Store) Restore(orders []models.Order, finance []models.FinanceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range orders {
		s.orders[o.ID] = o
		if o.Status == models.OrderStatusOpen {
			s.listLocked(o)
		}
	}
	s.finance = append(s.finance, finance...)
}

// List filters assets. Name matching is a case-sensitive substring match.
func (s *Store) List(q models.ListingQuery) models.Page[models.RawAssetRecord] {
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []models.RawAssetRecord{}
	for _, a := range s.assets {
		if q.IsForSale != nil && isForSale(a) != *q.IsForSale {
			continue
		}
		if q.IsForRent != nil && isForRent(a) != *q.IsForRent {
			continue
		}
		if q.Name != "" && !strings.Contains(a.Name, q.Name) {
			continue
		}
		matched = append(matched, a)
	}

	out := models.Page[models.RawAssetRecord]{List: []models.RawAssetRecord{}, Total: len(matched), Page: page, PageSize: size}
	start := (page - 1) * size
	if start < len(matched) {
		end := start + size
		if end > len(matched) {
			end = len(matched)
		}
		out.List = append(out.List, matched[start:end]...)
	}
	return out
}

func (s *Store) Get(id string) (models.RawAssetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return models.RawAssetRecord{}, fmt.Errorf("%w: asset %s", ErrNotFound, id)
	}
	return s.assets[i], nil
}

// CreateOrder opens an order and lists the asset accordingly.
func (s *Store) CreateOrder(req models.OrderRequest) (models.Order, error) {
	price, ok := new(big.Int).SetString(req.Price, 10)
	if !ok || price.Sign() < 0 {
		return models.Order{}, fmt.Errorf("%w: invalid price %q", ErrBadRequest, req.Price)
	}
	if req.PayToken != "" {
		if err := validation.ValidateAddress(req.PayToken); err != nil {
			return models.Order{}, fmt.Errorf("%w: invalid payToken: %v", ErrBadRequest, err)
		}
	}
	if req.Kind == models.OrderKindRent && req.Periods == 0 {
		return models.Order{}, fmt.Errorf("%w: periods is required for rent orders", ErrBadRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[req.TokenID]; !ok {
		return models.Order{}, fmt.Errorf("%w: asset %s", ErrNotFound, req.TokenID)
	}
	for _, o := range s.orders {
		if o.TokenID == req.TokenID && o.Kind == req.Kind && o.Status == models.OrderStatusOpen {
			return models.Order{}, fmt.Errorf("%w: asset %s already has an open %s order", ErrConflict, req.TokenID, req.Kind)
		}
	}

	order := models.Order{
		ID:        uuid.NewString(),
		TokenID:   req.TokenID,
		Kind:      req.Kind,
		Price:     price.String(),
		PayToken:  validation.NormalizeAddress(orZero(req.PayToken)),
		Periods:   req.Periods,
		Status:    models.OrderStatusOpen,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.save(order); err != nil {
		return models.Order{}, err
	}
	s.orders[order.ID] = order
	s.listLocked(order)

	return order, nil
}

func (s *Store) listLocked(order models.Order) {
	i, ok := s.index[order.TokenID]
	if !ok {
		return
	}
	asset := s.assets[i]
	switch order.Kind {
	case models.OrderKindSale:
		asset.SaleInfo = &models.SaleInfo{IsForSale: true, Price: order.Price, Receiver: asset.Owner, PayToken: order.PayToken}
	case models.OrderKindRent:
		asset.RentalInfo = &models.RentalInfo{IsForRent: true, PricePerPeriod: order.Price, PeriodCount: order.Periods}
	}
	s.assets[i] = asset
}

func (s *Store) save(order models.Order) error {
	if s.journal == nil {
		return nil
	}
	return s.journal.SaveOrder(order)
}

func (s *Store) CancelOrder(id string) (models.Order, error) {
	return s.closeOrder(id, models.OrderStatusCancelled, "")
}

func (s *Store) CompleteOrder(id, txHash string) (models.Order, error) {
	return s.closeOrder(id, models.OrderStatusCompleted, txHash)
}

// closeOrder finishes an open order and removes the matching listing.
func (s *Store) closeOrder(id string, status models.OrderStatus, txHash string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	if order.Status != models.OrderStatusOpen {
		return models.Order{}, fmt.Errorf("%w: order %s is %s", ErrConflict, id, order.Status)
	}
	order.Status = status
	order.TxHash = txHash
	if err := s.save(order); err != nil {
		return models.Order{}, err
	}
	s.orders[id] = order

	if i, ok := s.index[order.TokenID]; ok {
		asset := s.assets[i]
		switch order.Kind {
		case models.OrderKindSale:
			asset.SaleInfo = &models.SaleInfo{PayToken: order.PayToken}
		case models.OrderKindRent:
			asset.RentalInfo = &models.RentalInfo{}
		}
		s.assets[i] = asset
	}
	return order, nil
}

// RecordFinance stores a deposit, withdrawal or transfer.
func (s *Store) RecordFinance(kind models.FinanceKind, req models.FinanceRequest) (models.FinanceRecord, error) {
	if !req.Amount.IsPositive() {
		return models.FinanceRecord{}, fmt.Errorf("%w: amount must be positive", ErrBadRequest)
	}
	if kind != models.FinanceDeposit {
		if err := validation.ValidateAddress(req.Address); err != nil {
			return models.FinanceRecord{}, fmt.Errorf("%w: invalid address: %v", ErrBadRequest, err)
		}
	}

	record := models.FinanceRecord{
		ID:        uuid.NewString(),
		Kind:      kind,
		Currency:  strings.ToUpper(req.Currency),
		Amount:    req.Amount,
		TxHash:    req.TxHash,
		Status:    "pending",
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	if req.Address != "" {
		record.Address = validation.NormalizeAddress(req.Address)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if kind != models.FinanceDeposit && s.balanceLocked(record.Currency).LessThan(record.Amount) {
		return models.FinanceRecord{}, fmt.Errorf("%w: insufficient %s balance", ErrConflict, record.Currency)
	}
	if s.journal != nil {
		if err := s.journal.SaveFinance(record); err != nil {
			return models.FinanceRecord{}, err
		}
	}
	s.finance = append(s.finance, record)

	return record, nil
}

// Balance sums recorded finance movements for a currency.
func (s *Store) Balance(currency string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balanceLocked(currency)
}

func (s *Store) balanceLocked(currency string) decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.finance {
		if r.Currency != strings.ToUpper(currency) {
			continue
		}
		if r.Kind == models.FinanceDeposit {
			total = total.Add(r.Amount)
		} else {
			total = total.Sub(r.Amount)
		}
	}
	return total
}

func isForSale(a models.RawAssetRecord) bool {
	return a.SaleInfo != nil && a.SaleInfo.IsForSale
}

func isForRent(a models.RawAssetRecord) bool {
	return a.RentalInfo != nil && a.RentalInfo.IsForRent
}

func orZero(addr string) string {
	if addr == "" {
		return "0x0000000000000000000000000000000000000000"
	}
	return addr
}
