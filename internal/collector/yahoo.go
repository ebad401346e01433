package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"Seesaw/internal/model"
)

// DefaultYahooURL is the public chart API host.
const DefaultYahooURL = "https://query1.finance.yahoo.com"

// YahooOptions configures the Yahoo fetcher. Zero values use defaults.
type YahooOptions struct {
	BaseURL           string
	ProxyURL          string
	Timeout           time.Duration
	RetryCount        int
	RequestsPerSecond float64
	SymbolMap         map[string]string // maps position names to Yahoo tickers
}

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	http      *resty.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	SymbolMap map[string]string
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(opts YahooOptions) *YahooFetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultYahooURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0")
	if opts.ProxyURL != "" {
		client.SetProxy(opts.ProxyURL)
	}

	st := gobreaker.Settings{Name: "yahoo"}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}

	symbols := opts.SymbolMap
	if symbols == nil {
		symbols = map[string]string{}
	}
	return &YahooFetcher{
		http:      client,
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		breaker:   gobreaker.NewCircuitBreaker(st),
		SymbolMap: symbols,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func at(values []interface{}, i int) float64 {
	if i >= len(values) {
		return 0
	}
	return toFloat(values[i])
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, interval, rng string) ([]model.OHLCV, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := f.breaker.Execute(func() (interface{}, error) {
		resp, err := f.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{"interval": interval, "range": rng}).
			Get("/v8/finance/chart/" + url.PathEscape(f.yahooSymbol(symbol)))
		if err != nil {
			return nil, fmt.Errorf("yahoo fetch: %w", err)
		}
		if resp.StatusCode() >= 500 {
			return nil, fmt.Errorf("yahoo: status %d", resp.StatusCode())
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	resp := out.(*resty.Response)
	body := resp.Body()
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode(), string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o := at(quote.Open, i)
		h := at(quote.High, i)
		l := at(quote.Low, i)
		c := at(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// FetchDailyBars returns up to days daily bars, oldest first. The last bar is
// today's session while the market is open.
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	rng := "2y"
	if days <= 5 {
		rng = "5d"
	} else if days <= 30 {
		rng = "1mo"
	} else if days <= 90 {
		rng = "3mo"
	} else if days <= 180 {
		rng = "6mo"
	} else if days <= 365 {
		rng = "1y"
	}
	bars, err := f.fetchChart(ctx, symbol, "1d", rng)
	if err != nil {
		return nil, err
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}
