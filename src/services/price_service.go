package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/username/idxflow/backend/src/logger"
	"github.com/username/idxflow/backend/src/models"
	"golang.org/x/net/publicsuffix"
)

// IDX tickers are quoted on Yahoo Finance with a .JK suffix.
const yahooIDXSuffix = ".JK"

const priceDateLayout = "2006-01-02"

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

type priceServiceImpl struct {
	httpClient http.Client
}

// NewPriceService creates the Yahoo Finance backed price service. The HTTP
// client carries a cookie jar; Yahoo rejects bare clients.
func NewPriceService() PriceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}
	return &priceServiceImpl{
		httpClient: http.Client{
			Jar:     jar,
			Timeout: 20 * time.Second,
		},
	}
}

// GetDailyHistory returns daily OHLCV bars for an IDX ticker between
// startDate and endDate inclusive (both YYYY-MM-DD).
func (s *priceServiceImpl) GetDailyHistory(ticker, startDate, endDate string) ([]models.DailyPrice, error) {
	start, err := time.Parse(priceDateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse(priceDateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	// Yahoo's range end is exclusive; push it one day so endDate is included.
	end = end.AddDate(0, 0, 1)

	url := fmt.Sprintf(
		"https://query1.finance.yahoo.com/v8/finance/chart/%s%s?period1=%d&period2=%d&interval=1d",
		ticker, yahooIDXSuffix, start.Unix(), end.Unix())

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	// A valid User-Agent is crucial.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Yahoo chart API for ticker %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo chart API returned non-OK status %d for ticker %s", resp.StatusCode, ticker)
	}

	var chartData yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chartData); err != nil {
		return nil, fmt.Errorf("failed to decode Yahoo chart response for ticker %s: %w", ticker, err)
	}
	if chartData.Chart.Error != nil || len(chartData.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart API returned an error or no result for ticker %s", ticker)
	}

	result := chartData.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return []models.DailyPrice{}, nil
	}
	quote := result.Indicators.Quote[0]

	prices := make([]models.DailyPrice, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo pads halted days with nulls; skip incomplete bars.
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bar := models.DailyPrice{
			Date:  time.Unix(ts, 0).UTC().Format(priceDateLayout),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			bar.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			bar.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			bar.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		prices = append(prices, bar)
	}

	logger.L.Debug("Fetched daily history", "ticker", ticker, "bars", len(prices))
	return prices, nil
}
