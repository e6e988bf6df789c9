package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventtix/internal/status"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// fallbackRates is consulted when the live rate source is unreachable.
// Rates are relative to USD and deliberately coarse: a slightly stale
// conversion is better than refusing the purchase.
var fallbackRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.RequireFromString("0.92"),
	"GBP": decimal.RequireFromString("0.79"),
	"NGN": decimal.RequireFromString("1530"),
	"GHS": decimal.RequireFromString("14.9"),
	"KES": decimal.RequireFromString("129"),
	"XOF": decimal.RequireFromString("603"),
	"ZAR": decimal.RequireFromString("18.2"),
}

type ConversionResult struct {
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
}

// CurrencyService normalizes amounts across currencies for gateways with
// limited currency support. Live rates come from an exchange-rate API and
// are cached in redis; the static table is the last resort.
type CurrencyService struct {
	redis    *redis.Client
	baseURL  string
	cacheTTL time.Duration
	hc       *http.Client
}

func NewCurrencyService(redisClient *redis.Client, baseURL string, cacheTTL time.Duration) *CurrencyService {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &CurrencyService{
		redis:    redisClient,
		baseURL:  strings.TrimRight(baseURL, "/"),
		cacheTTL: cacheTTL,
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Convert returns amount expressed in the target currency plus the rate
// used. It only fails for currency codes nobody can price, never for a
// broken rate source.
func (s *CurrencyService) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*ConversionResult, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if from == to {
		return &ConversionResult{Amount: amount, Rate: decimal.NewFromInt(1)}, nil
	}

	rate, err := s.rate(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &ConversionResult{
		Amount: amount.Mul(rate).Round(2),
		Rate:   rate,
	}, nil
}

func (s *CurrencyService) rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	cacheKey := fmt.Sprintf("fx:%s:%s", from, to)
	if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
		if rate, derr := decimal.NewFromString(cached); derr == nil {
			return rate, nil
		}
	}

	rate, err := s.fetchRate(ctx, from, to)
	if err != nil {
		slog.Warn("live rate fetch failed, using fallback table", "from", from, "to", to, "error", err)
		rate, err = fallbackRate(from, to)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return rate, nil
	}

	if err := s.redis.Set(ctx, cacheKey, rate.String(), s.cacheTTL).Err(); err != nil {
		slog.Warn("caching fx rate failed", "key", cacheKey, "error", err)
	}
	return rate, nil
}

func (s *CurrencyService) fetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/latest/%s", s.baseURL, from), nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetchRate: http.NewReq: %w", err)
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetchRate: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("fetchRate: http.StatusCode: %d", resp.StatusCode)
	}

	var reply struct {
		Result string                     `json:"result"`
		Rates  map[string]decimal.Decimal `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetchRate: json.Decode: %w", err)
	}
	if reply.Result != "success" {
		return decimal.Decimal{}, fmt.Errorf("fetchRate: result: %s", reply.Result)
	}

	rate, ok := reply.Rates[to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", status.ErrUnsupportedCurrency, to)
	}
	return rate, nil
}

func fallbackRate(from, to string) (decimal.Decimal, error) {
	fromUSD, ok := fallbackRates[from]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", status.ErrUnsupportedCurrency, from)
	}
	toUSD, ok := fallbackRates[to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", status.ErrUnsupportedCurrency, to)
	}
	// both sides are expressed against USD
	return toUSD.DivRound(fromUSD, 8), nil
}
