package std

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ilkoid/poncho-chat/pkg/config"
	"github.com/ilkoid/poncho-chat/pkg/tools"
	"github.com/ilkoid/poncho-chat/pkg/utils"
	"github.com/ilkoid/poncho-chat/pkg/webapi"
)

const demoNote = "Demo data"

// StockQuote - ответ get_stock_price.
//
// Числа передаются строками с двумя знаками после точки, так их
// показывает клиент.
type StockQuote struct {
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Change        string `json:"change"`
	ChangePercent string `json:"changePercent"`
	Note          string `json:"note,omitempty"`
}

var demoStocks = map[string]StockQuote{
	"AAPL":  {Price: "175.43", Change: "2.31", ChangePercent: "1.34"},
	"GOOGL": {Price: "125.67", Change: "-1.24", ChangePercent: "-0.98"},
	"MSFT":  {Price: "378.85", Change: "5.12", ChangePercent: "1.37"},
	"TSLA":  {Price: "245.67", Change: "8.23", ChangePercent: "3.46"},
	"AMZN":  {Price: "142.33", Change: "1.87", ChangePercent: "1.33"},
}

// finnhubQuote - ответ finnhub /api/v1/quote.
type finnhubQuote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
}

// StockTool - котировка акции по тикеру.
type StockTool struct {
	client *webapi.Client
	cfg    config.ToolConfig
}

func NewStockTool(client *webapi.Client, cfg config.ToolConfig) *StockTool {
	return &StockTool{client: client, cfg: cfg}
}

func (t *StockTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        config.ToolStock,
		Description: "Get current stock price for a stock symbol",
		Parameters: objectSchema(map[string]any{
			"symbol": stringProp("Stock symbol like AAPL, GOOGL, MSFT, TSLA"),
		}, "symbol"),
	}
}

func (t *StockTool) Execute(ctx context.Context, args tools.Args) (tools.Envelope, error) {
	var in struct {
		Symbol string `json:"symbol"`
	}
	if err := args.Decode(&in); err != nil {
		return tools.Envelope{}, err
	}
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return tools.Envelope{}, fmt.Errorf("%w: symbol is required", tools.ErrInvalidArguments)
	}

	if isDemoKey(t.cfg.APIKey, config.PlaceholderFinnhubKey) {
		utils.Debug("Using demo stock data", "symbol", symbol)
		return tools.OK(demoStock(symbol)), nil
	}

	ep := endpoint(config.ToolStock, t.cfg, "/api/v1/quote")
	ep.Query = url.Values{
		"symbol": {symbol},
		"token":  {t.cfg.APIKey},
	}

	var q finnhubQuote
	if err := t.client.GetJSON(ctx, ep, &q); err != nil {
		utils.Warn("Stock API failed",
			"symbol", symbol,
			"error_type", webapi.ClassifyError(err).String(),
			"error", err)
		return tools.Fail("Stock data unavailable for %s", in.Symbol), nil
	}
	// finnhub отвечает нулями на неизвестный тикер
	if q.Current == 0 {
		utils.Warn("Stock API returned no data", "symbol", symbol)
		return tools.Fail("Stock data unavailable for %s", in.Symbol), nil
	}

	return tools.OK(StockQuote{
		Symbol:        symbol,
		Price:         fmt.Sprintf("%.2f", q.Current),
		Change:        fmt.Sprintf("%.2f", q.Change),
		ChangePercent: fmt.Sprintf("%.2f", q.ChangePercent),
	}), nil
}

// demoStock: фиксированная таблица, для прочих тикеров цена 50..249.99,
// изменение -5..5, процент -2..2.
func demoStock(symbol string) StockQuote {
	q, ok := demoStocks[symbol]
	if !ok {
		h := seed(symbol)
		q = StockQuote{
			Price:         fmt.Sprintf("%.2f", 50+float64(h%20000)/100),
			Change:        fmt.Sprintf("%.2f", float64(int((h>>8)%1001)-500)/100),
			ChangePercent: fmt.Sprintf("%.2f", float64(int((h>>16)%401)-200)/100),
		}
	}
	q.Symbol = symbol
	q.Note = demoNote
	return q
}
