package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	applogger "TradePulse/pkg/logger"
)

// Counts is the aggregate catalog view used by status reporting.
type Counts struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Tracked int `json:"tracked"`
}

// Service is the authoritative symbol catalog. It keeps an in-memory
// index keyed by (ticker, venue) over the persistent store; all writes
// go through the store first, then update the index.
type Service struct {
	store        drepo.SymbolStore
	logger       *applogger.Logger
	defaultVenue string

	mu    sync.RWMutex
	byKey map[string]*models.Symbol
}

// NewService creates a catalog service. defaultVenue is applied when
// callers omit a venue.
func NewService(store drepo.SymbolStore, defaultVenue string, logger *applogger.Logger) *Service {
	if defaultVenue == "" {
		defaultVenue = "BINANCE"
	}
	return &Service{
		store:        store,
		logger:       logger,
		defaultVenue: strings.ToUpper(defaultVenue),
		byKey:        make(map[string]*models.Symbol),
	}
}

// DefaultVenue returns the venue applied to venue-less lookups.
func (s *Service) DefaultVenue() string { return s.defaultVenue }

// Load populates the index from the store. Call once at startup.
func (s *Service) Load(ctx context.Context) error {
	rows, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("registry load: %w", err)
	}
	s.mu.Lock()
	s.byKey = make(map[string]*models.Symbol, len(rows))
	for _, r := range rows {
		s.byKey[r.Key()] = r
	}
	n := len(s.byKey)
	s.mu.Unlock()
	s.logger.Info("registry: catalog loaded", applogger.Int("symbols", n))
	return nil
}

// Get looks up a symbol by ticker and venue. Empty venue means the
// default venue.
func (s *Service) Get(ticker, venue string) (*models.Symbol, bool) {
	if venue == "" {
		venue = s.defaultVenue
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sym, ok := s.byKey[models.SymbolKey(ticker, venue)]
	if !ok {
		return nil, false
	}
	cp := *sym
	return &cp, true
}

// ResolveOrCreate returns the existing entry for (ticker, venue) or
// creates one. New entries derive base/quote from the ticker and start
// active but untracked.
func (s *Service) ResolveOrCreate(ctx context.Context, ticker, venue, assetClass string) (*models.Symbol, bool, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, false, fmt.Errorf("registry: empty ticker")
	}
	if venue == "" {
		venue = s.defaultVenue
	}
	venue = strings.ToUpper(venue)

	if sym, ok := s.Get(ticker, venue); ok {
		return sym, false, nil
	}

	base, quote, _ := models.DeriveCurrencyPair(ticker)
	now := time.Now()
	sym := &models.Symbol{
		ID:         uuid.NewString(),
		Ticker:     ticker,
		Venue:      venue,
		BaseAsset:  base,
		QuoteAsset: quote,
		AssetClass: strings.ToUpper(assetClass),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.put(ctx, sym); err != nil {
		return nil, false, err
	}
	s.logger.Info("registry: symbol created",
		applogger.String("ticker", ticker),
		applogger.String("venue", venue),
		applogger.String("asset_class", sym.AssetClass))
	return sym, true, nil
}

// ListActive returns all active symbols sorted by ticker.
func (s *Service) ListActive() []*models.Symbol {
	return s.list(func(sym *models.Symbol) bool { return sym.IsActive })
}

// ListTracked returns all active tracked symbols sorted by ticker.
func (s *Service) ListTracked() []*models.Symbol {
	return s.list(func(sym *models.Symbol) bool { return sym.IsActive && sym.IsTracked })
}

// ListAll returns every catalog entry, deactivated ones included.
func (s *Service) ListAll() []*models.Symbol {
	return s.list(func(*models.Symbol) bool { return true })
}

// TrackedTickers returns the ticker strings of tracked symbols, the
// ingestion subscription list.
func (s *Service) TrackedTickers() []string {
	tracked := s.ListTracked()
	out := make([]string, 0, len(tracked))
	for _, sym := range tracked {
		out = append(out, sym.Ticker)
	}
	return out
}

// SetTracked flips the tracked flag.
func (s *Service) SetTracked(ctx context.Context, ticker, venue string, tracked bool) (*models.Symbol, error) {
	return s.mutate(ctx, ticker, venue, func(sym *models.Symbol) {
		sym.IsTracked = tracked
	})
}

// Deactivate retires a symbol. Rows are never deleted.
func (s *Service) Deactivate(ctx context.Context, ticker, venue string) (*models.Symbol, error) {
	return s.mutate(ctx, ticker, venue, func(sym *models.Symbol) {
		sym.IsActive = false
		sym.IsTracked = false
	})
}

// UpdateMetadata merges entries into the symbol's metadata blob.
func (s *Service) UpdateMetadata(ctx context.Context, ticker, venue string, meta map[string]string) (*models.Symbol, error) {
	return s.mutate(ctx, ticker, venue, func(sym *models.Symbol) {
		if sym.Metadata == nil {
			sym.Metadata = make(map[string]string, len(meta))
		}
		for k, v := range meta {
			sym.Metadata[k] = v
		}
	})
}

// Counts summarizes the catalog.
func (s *Service) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := Counts{Total: len(s.byKey)}
	for _, sym := range s.byKey {
		if sym.IsActive {
			c.Active++
			if sym.IsTracked {
				c.Tracked++
			}
		}
	}
	return c
}

// AssetClassCounts breaks active symbols down by asset class.
func (s *Service) AssetClassCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int)
	for _, sym := range s.byKey {
		if sym.IsActive {
			out[sym.AssetClass]++
		}
	}
	return out
}

// Upsert stores a fully-formed symbol, replacing any existing entry for
// its key. Used by validation repair.
func (s *Service) Upsert(ctx context.Context, sym *models.Symbol) error {
	sym.UpdatedAt = time.Now()
	return s.put(ctx, sym)
}

func (s *Service) mutate(ctx context.Context, ticker, venue string, fn func(*models.Symbol)) (*models.Symbol, error) {
	if venue == "" {
		venue = s.defaultVenue
	}
	key := models.SymbolKey(ticker, venue)

	s.mu.RLock()
	existing, ok := s.byKey[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: unknown symbol %s", key)
	}

	cp := *existing
	fn(&cp)
	cp.UpdatedAt = time.Now()
	if err := s.put(ctx, &cp); err != nil {
		return nil, err
	}
	out := cp
	return &out, nil
}

func (s *Service) put(ctx context.Context, sym *models.Symbol) error {
	if err := s.store.Upsert(ctx, sym); err != nil {
		return fmt.Errorf("registry upsert %s: %w", sym.Key(), err)
	}
	s.mu.Lock()
	s.byKey[sym.Key()] = sym
	s.mu.Unlock()
	return nil
}

func (s *Service) list(keep func(*models.Symbol) bool) []*models.Symbol {
	s.mu.RLock()
	out := make([]*models.Symbol, 0, len(s.byKey))
	for _, sym := range s.byKey {
		if keep(sym) {
			cp := *sym
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}
