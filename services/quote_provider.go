package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Provider API endpoints
const (
	YahooChartAPIURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	FinnhubQuoteURL  = "https://finnhub.io/api/v1/quote"
)

// ErrNoPriceAvailable is returned when every configured provider failed to
// produce a usable quote for a symbol.
var ErrNoPriceAvailable = errors.New("no price available")

// Quote is a single price observation for a symbol, tagged with the
// provider that produced it. Quotes live only for the duration of one
// monitor cycle and are never persisted.
type Quote struct {
	Symbol    string
	Price     decimal.Decimal
	Source    string
	FetchedAt time.Time
}

// PriceProvider fetches the current price for a ticker symbol from one
// external quote source.
type PriceProvider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// YahooProvider fetches quotes from the Yahoo Finance chart API.
type YahooProvider struct {
	Client  *http.Client
	BaseURL string
}

// NewYahooProvider creates a new Yahoo Finance provider.
func NewYahooProvider() *YahooProvider {
	return &YahooProvider{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: YahooChartAPIURL,
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchQuote fetches the current regular-market price for a symbol.
func (p *YahooProvider) FetchQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/%s?interval=1d&range=1d", p.BaseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}

	// Yahoo rejects requests without a browser-like user agent
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse response: %w", err)
	}
	if chart.Chart.Error != nil {
		return decimal.Zero, fmt.Errorf("API error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return decimal.Zero, fmt.Errorf("no data returned for %s", symbol)
	}

	price := chart.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return decimal.Zero, fmt.Errorf("non-positive price %v for %s", price, symbol)
	}

	return decimal.NewFromFloat(price), nil
}

// FinnhubProvider fetches quotes from the Finnhub quote API.
type FinnhubProvider struct {
	Client  *http.Client
	BaseURL string
	apiKey  string
}

// NewFinnhubProvider creates a new Finnhub provider. Returns nil when no
// API key is configured; the adapter then runs without a fallback.
func NewFinnhubProvider(apiKey string) *FinnhubProvider {
	if apiKey == "" {
		return nil
	}
	return &FinnhubProvider{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: FinnhubQuoteURL,
		apiKey:  apiKey,
	}
}

func (p *FinnhubProvider) Name() string { return "finnhub" }

// finnhubQuote is the response structure from the Finnhub quote API.
// "c" is the current price.
type finnhubQuote struct {
	Current float64 `json:"c"`
}

// FetchQuote fetches the current price for a symbol.
func (p *FinnhubProvider) FetchQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s?symbol=%s&token=%s", p.BaseURL, url.QueryEscape(symbol), url.QueryEscape(p.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var quote finnhubQuote
	if err := json.Unmarshal(body, &quote); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse response: %w", err)
	}
	if quote.Current <= 0 {
		return decimal.Zero, fmt.Errorf("non-positive price %v for %s", quote.Current, symbol)
	}

	return decimal.NewFromFloat(quote.Current), nil
}

// QuoteService normalizes price fetching across a primary provider and an
// optional fallback. Every call records one price check log row, success or
// failure; log-write errors never fail the price check itself.
type QuoteService struct {
	primary  PriceProvider
	fallback PriceProvider // nil when not configured
	repo     *AlertRepository
}

// NewQuoteService creates a quote service. fallback may be nil.
func NewQuoteService(primary, fallback PriceProvider, repo *AlertRepository) *QuoteService {
	return &QuoteService{
		primary:  primary,
		fallback: fallback,
		repo:     repo,
	}
}

// GetPrice fetches the current price for a symbol, falling back to the
// secondary provider when the primary fails. When both fail the returned
// error wraps ErrNoPriceAvailable and carries both providers' errors.
func (s *QuoteService) GetPrice(ctx context.Context, symbol string) (*Quote, error) {
	price, err := s.primary.FetchQuote(ctx, symbol)
	if err == nil {
		return s.accept(symbol, price, s.primary.Name()), nil
	}

	detail := fmt.Sprintf("%s: %v", s.primary.Name(), err)

	if s.fallback != nil {
		log.Printf("%s failed for %s, trying %s...", s.primary.Name(), symbol, s.fallback.Name())
		price, ferr := s.fallback.FetchQuote(ctx, symbol)
		if ferr == nil {
			return s.accept(symbol, price, s.fallback.Name()), nil
		}
		detail = fmt.Sprintf("%s, %s: %v", detail, s.fallback.Name(), ferr)
	}

	if logErr := s.repo.LogPriceCheckFailure(symbol, detail); logErr != nil {
		log.Printf("Failed to log price check for %s: %v", symbol, logErr)
	}

	return nil, fmt.Errorf("%w for %s (%s)", ErrNoPriceAvailable, symbol, detail)
}

// accept tags a successful quote with its source and records the check.
func (s *QuoteService) accept(symbol string, price decimal.Decimal, source string) *Quote {
	quote := &Quote{
		Symbol:    symbol,
		Price:     price,
		Source:    source,
		FetchedAt: time.Now(),
	}

	if logErr := s.repo.LogPriceCheckSuccess(symbol, price, source); logErr != nil {
		log.Printf("Failed to log price check for %s: %v", symbol, logErr)
	}

	return quote
}
