package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"

	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/logger"
)

const (
	// MaxConcurrentFetches limits parallel metadata requests.
	MaxConcurrentFetches = 8

	DefaultFetchTimeout = 10 * time.Second
)

// TokenMetadata is the ERC-721 metadata JSON document.
type TokenMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Rarity      string      `json:"rarity"`
	Attributes  []attribute `json:"attributes"`
}

type attribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// Resolver fetches token metadata documents and fills the inline fields of
// raw records. Documents are cached for the lifetime of the resolver.
type Resolver struct {
	logger  *logger.Logger
	gateway string
	timeout time.Duration

	cache      map[string]*TokenMetadata
	cacheMutex sync.RWMutex
	inflight   singleflight.Group
}

// NewResolver creates a resolver. gateway replaces the ipfs:// scheme, e.g.
// "https://ipfs.io/ipfs/".
func NewResolver(gateway string, fetchTimeout time.Duration, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNop()
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Resolver{
		logger:  log,
		gateway: gateway,
		timeout: fetchTimeout,
		cache:   map[string]*TokenMetadata{},
	}
}

// Enrich returns copies of records with metadata filled in. Inline values
// already present win over fetched ones. Fetch failures are logged and leave
// the record unchanged.
func (r *Resolver) Enrich(ctx context.Context, records []models.RawAssetRecord) []models.RawAssetRecord {
	out := make([]models.RawAssetRecord, len(records))
	copy(out, records)

	sem := make(chan struct{}, MaxConcurrentFetches)
	var wg sync.WaitGroup

	for i := range out {
		if out[i].MetadataURI == "" || !needsMetadata(out[i]) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{} // Acquire semaphore

		go func(rec *models.RawAssetRecord) {
			defer wg.Done()
			defer func() { <-sem }() // Release semaphore

			meta, err := r.Fetch(ctx, rec.MetadataURI)
			if err != nil {
				r.logger.Warn("Failed to fetch token metadata", "tokenId", rec.TokenID, "uri", rec.MetadataURI, "error", err)
				return
			}
			r.apply(rec, meta)
		}(&out[i])
	}

	wg.Wait()
	return out
}

// Fetch returns the metadata document at uri, from cache when possible.
func (r *Resolver) Fetch(ctx context.Context, uri string) (*TokenMetadata, error) {
	r.cacheMutex.RLock()
	meta, ok := r.cache[uri]
	r.cacheMutex.RUnlock()
	if ok {
		return meta, nil
	}

	v, err, _ := r.inflight.Do(uri, func() (interface{}, error) {
		return r.fetch(ctx, uri)
	})
	if err != nil {
		return nil, err
	}
	return v.(*TokenMetadata), nil
}

func (r *Resolver) fetch(ctx context.Context, uri string) (*TokenMetadata, error) {
	r.cacheMutex.RLock()
	cached, ok := r.cache[uri]
	r.cacheMutex.RUnlock()
	if ok {
		return cached, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := gentleman.New().
		URL(r.ResolveURI(uri)).
		Use(timeout.Request(r.timeout)).
		Request()
	req.Context.SetCancelContext(ctx)

	resp, err := req.Send()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("failed to fetch token metadata: %w", ctxErr)
		}
		return nil, fmt.Errorf("failed to fetch token metadata: %w", err)
	}
	defer resp.Close()

	if !resp.Ok {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(resp.String(), 200))
	}

	meta := &TokenMetadata{}
	if err := json.Unmarshal(resp.Bytes(), meta); err != nil {
		return nil, fmt.Errorf("failed to decode token metadata: %w", err)
	}

	r.cacheMutex.Lock()
	r.cache[uri] = meta
	r.cacheMutex.Unlock()

	return meta, nil
}

// ResolveURI maps ipfs:// URIs onto the HTTP gateway.
func (r *Resolver) ResolveURI(uri string) string {
	if rest, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		rest = strings.TrimPrefix(rest, "ipfs/")
		return strings.TrimRight(r.gateway, "/") + "/" + rest
	}
	return uri
}

func (r *Resolver) apply(rec *models.RawAssetRecord, meta *TokenMetadata) {
	if rec.Name == "" {
		rec.Name = meta.Name
	}
	if rec.Description == "" {
		rec.Description = meta.Description
	}
	if rec.Image == "" && meta.Image != "" {
		rec.Image = r.ResolveURI(meta.Image)
	}

	rarity := meta.Rarity
	attrs := make([]models.Attribute, 0, len(meta.Attributes))
	for _, a := range meta.Attributes {
		value := fmt.Sprint(a.Value)
		if strings.EqualFold(a.TraitType, "rarity") && rarity == "" {
			rarity = value
		}
		attrs = append(attrs, models.Attribute{TraitType: a.TraitType, Value: value})
	}
	if rec.Rarity == "" {
		rec.Rarity = rarity
	}
	if len(rec.Attributes) == 0 && len(attrs) > 0 {
		rec.Attributes = attrs
	}
}

func needsMetadata(rec models.RawAssetRecord) bool {
	return rec.Name == "" || rec.Image == "" || rec.Description == "" || len(rec.Attributes) == 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
