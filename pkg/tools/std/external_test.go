package std

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/poncho-chat/pkg/config"
	"github.com/ilkoid/poncho-chat/pkg/tools"
	"github.com/ilkoid/poncho-chat/pkg/webapi"
)

func upstream(t *testing.T, h http.HandlerFunc) (*webapi.Client, config.ToolConfig) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.ToolConfig{APIKey: "live-key", BaseURL: srv.URL, RateLimit: 6000, Burst: 10}
	return webapi.NewWithHTTPClient(srv.Client(), 1), cfg
}

func failing(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "boom", http.StatusInternalServerError)
}

func TestWeather_DemoModeIsDeterministic(t *testing.T) {
	for _, key := range []string{"", config.PlaceholderWeatherKey} {
		tool := NewWeatherTool(nil, config.ToolConfig{APIKey: key})

		first, err := tool.Execute(context.Background(), tools.Args{"city": "Paris"})
		require.NoError(t, err)
		second, err := tool.Execute(context.Background(), tools.Args{"city": "paris "})
		require.NoError(t, err)

		require.True(t, first.Success)
		a := first.Payload.(WeatherReport)
		b := second.Payload.(WeatherReport)
		assert.Equal(t, "Paris", a.City)
		assert.Equal(t, a.Temperature, b.Temperature)
		assert.Equal(t, a.Description, b.Description)

		assert.GreaterOrEqual(t, a.Temperature, 10)
		assert.LessOrEqual(t, a.Temperature, 39)
		assert.GreaterOrEqual(t, a.Humidity, 40)
		assert.LessOrEqual(t, a.Humidity, 79)
		assert.GreaterOrEqual(t, a.Wind, 5.0)
		assert.LessOrEqual(t, a.Wind, 24.0)
		assert.Contains(t, demoConditions, a.Description)
	}
}

func TestWeather_Live(t *testing.T) {
	client, cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/current.json", r.URL.Path)
		assert.Equal(t, "live-key", r.URL.Query().Get("key"))
		assert.Equal(t, "London", r.URL.Query().Get("q"))
		assert.Equal(t, "no", r.URL.Query().Get("aqi"))
		w.Write([]byte(`{"location":{"name":"London","country":"United Kingdom"},
			"current":{"temp_c":14.6,"humidity":82,"wind_kph":11.2,"condition":{"text":"Overcast"}}}`))
	})

	env, err := NewWeatherTool(client, cfg).Execute(context.Background(), tools.Args{"city": "London"})
	require.NoError(t, err)
	require.True(t, env.Success)
	assert.Equal(t, WeatherReport{
		City: "London", Country: "United Kingdom", Temperature: 15,
		Description: "Overcast", Humidity: 82, Wind: 11.2,
	}, env.Payload)
}

func TestWeather_LiveFailure(t *testing.T) {
	client, cfg := upstream(t, failing)

	env, err := NewWeatherTool(client, cfg).Execute(context.Background(), tools.Args{"city": "Atlantis"})
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, "Weather unavailable for Atlantis", env.Error)
}

func TestStock_DemoTable(t *testing.T) {
	tool := NewStockTool(nil, config.ToolConfig{APIKey: config.PlaceholderFinnhubKey})

	env, err := tool.Execute(context.Background(), tools.Args{"symbol": "aapl"})
	require.NoError(t, err)
	q := env.Payload.(StockQuote)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "175.43", q.Price)
	assert.Equal(t, "2.31", q.Change)
	assert.Equal(t, "1.34", q.ChangePercent)
	assert.Equal(t, demoNote, q.Note)

	env, err = tool.Execute(context.Background(), tools.Args{"symbol": "GOOGL"})
	require.NoError(t, err)
	assert.Equal(t, "-1.24", env.Payload.(StockQuote).Change)
}

func TestStock_DemoUnknownSymbolIsStable(t *testing.T) {
	tool := NewStockTool(nil, config.ToolConfig{})

	a, err := tool.Execute(context.Background(), tools.Args{"symbol": "NVDA"})
	require.NoError(t, err)
	b, err := tool.Execute(context.Background(), tools.Args{"symbol": "nvda"})
	require.NoError(t, err)
	assert.Equal(t, a.Payload, b.Payload)
}

func TestStock_Live(t *testing.T) {
	client, cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/quote", r.URL.Path)
		assert.Equal(t, "MSFT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "live-key", r.URL.Query().Get("token"))
		w.Write([]byte(`{"c":378.851,"d":-5.1,"dp":-1.337}`))
	})

	env, err := NewStockTool(client, cfg).Execute(context.Background(), tools.Args{"symbol": "msft"})
	require.NoError(t, err)
	assert.Equal(t, StockQuote{Symbol: "MSFT", Price: "378.85", Change: "-5.10", ChangePercent: "-1.34"}, env.Payload)
}

func TestStock_LiveNoData(t *testing.T) {
	client, cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":0,"d":null,"dp":null}`))
	})

	env, err := NewStockTool(client, cfg).Execute(context.Background(), tools.Args{"symbol": "ZZZZ"})
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, "Stock data unavailable for ZZZZ", env.Error)
}

func TestCurrency_Convert(t *testing.T) {
	client, cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/latest/USD", r.URL.Path)
		w.Write([]byte(`{"base":"USD","time_last_updated":1714564800,"rates":{"EUR":0.92346,"GBP":0.79}}`))
	})

	env, err := NewCurrencyTool(client, cfg).Execute(context.Background(),
		tools.Args{"amount": 100.0, "from": "usd", "to": "eur"})
	require.NoError(t, err)
	require.True(t, env.Success)

	conv := env.Payload.(Conversion)
	assert.Equal(t, 100.0, conv.OriginalAmount)
	assert.Equal(t, "USD", conv.FromCurrency)
	assert.Equal(t, "EUR", conv.ToCurrency)
	assert.Equal(t, 92.35, conv.ConvertedAmount)
	assert.Equal(t, 0.92346, conv.ExchangeRate)
	assert.Equal(t, time.Unix(1714564800, 0).UTC(), conv.UpdatedAt)
}

func TestCurrency_UnknownTarget(t *testing.T) {
	client, cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"base":"USD","rates":{"EUR":0.92}}`))
	})

	env, err := NewCurrencyTool(client, cfg).Execute(context.Background(),
		tools.Args{"amount": 5.0, "from": "USD", "to": "XYZ"})
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, "Could not convert USD to XYZ", env.Error)
}

func TestCurrency_UpstreamFailure(t *testing.T) {
	client, cfg := upstream(t, failing)

	env, err := NewCurrencyTool(client, cfg).Execute(context.Background(),
		tools.Args{"amount": 5.0, "from": "usd", "to": "eur"})
	require.NoError(t, err)
	assert.Equal(t, "Could not convert usd to eur", env.Error)
}

func TestQuote_Live(t *testing.T) {
	client, cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/random", r.URL.Path)
		w.Write([]byte(`{"content":"Stay hungry.","author":"Someone","tags":["Wisdom","Life"]}`))
	})

	env, err := NewQuoteTool(client, cfg).Execute(context.Background(), tools.Args{})
	require.NoError(t, err)
	assert.Equal(t, Quote{Quote: "Stay hungry.", Author: "Someone", Category: "Wisdom, Life"}, env.Payload)
}

func TestQuote_FallbackRotates(t *testing.T) {
	var calls atomic.Int32
	client, cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		failing(w, r)
	})
	tool := NewQuoteTool(client, cfg)

	seen := make([]string, 0, len(fallbackQuotes)+1)
	for i := 0; i <= len(fallbackQuotes); i++ {
		env, err := tool.Execute(context.Background(), tools.Args{})
		require.NoError(t, err)
		require.True(t, env.Success)
		q := env.Payload.(Quote)
		assert.Equal(t, "Inspirational", q.Category)
		seen = append(seen, q.Quote)
	}

	assert.Equal(t, fallbackQuotes[0].Quote, seen[0])
	assert.Equal(t, fallbackQuotes[1].Quote, seen[1])
	assert.Equal(t, seen[0], seen[len(fallbackQuotes)])
	assert.Equal(t, int32(len(fallbackQuotes)+1), calls.Load())
}
