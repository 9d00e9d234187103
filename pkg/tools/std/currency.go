package std

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/ilkoid/poncho-chat/pkg/config"
	"github.com/ilkoid/poncho-chat/pkg/tools"
	"github.com/ilkoid/poncho-chat/pkg/utils"
	"github.com/ilkoid/poncho-chat/pkg/webapi"
)

// Conversion - ответ convert_currency.
type Conversion struct {
	OriginalAmount  float64   `json:"originalAmount"`
	FromCurrency    string    `json:"fromCurrency"`
	ToCurrency      string    `json:"toCurrency"`
	ConvertedAmount float64   `json:"convertedAmount"`
	ExchangeRate    float64   `json:"exchangeRate"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ratesResponse - ответ exchangerate-api /v4/latest/<BASE>.
type ratesResponse struct {
	Base            string             `json:"base"`
	TimeLastUpdated int64              `json:"time_last_updated"`
	Rates           map[string]float64 `json:"rates"`
}

// CurrencyTool - конвертация валют по актуальному курсу.
//
// Демо режима нет: API бесплатный и без ключа.
type CurrencyTool struct {
	client *webapi.Client
	cfg    config.ToolConfig
	now    func() time.Time
}

func NewCurrencyTool(client *webapi.Client, cfg config.ToolConfig) *CurrencyTool {
	return &CurrencyTool{client: client, cfg: cfg, now: time.Now}
}

func (t *CurrencyTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        config.ToolCurrency,
		Description: "Convert money from one currency to another",
		Parameters: objectSchema(map[string]any{
			"amount": map[string]any{
				"type":        "number",
				"description": "Amount to convert",
			},
			"from": stringProp("Source currency code like USD, EUR, GBP"),
			"to":   stringProp("Target currency code like USD, EUR, GBP"),
		}, "amount", "from", "to"),
	}
}

func (t *CurrencyTool) Execute(ctx context.Context, args tools.Args) (tools.Envelope, error) {
	var in struct {
		Amount float64 `json:"amount"`
		From   string  `json:"from"`
		To     string  `json:"to"`
	}
	if err := args.Decode(&in); err != nil {
		return tools.Envelope{}, err
	}
	from := strings.ToUpper(strings.TrimSpace(in.From))
	to := strings.ToUpper(strings.TrimSpace(in.To))
	if from == "" || to == "" {
		return tools.Envelope{}, fmt.Errorf("%w: from and to are required", tools.ErrInvalidArguments)
	}

	ep := endpoint(config.ToolCurrency, t.cfg, "/v4/latest/"+url.PathEscape(from))

	var resp ratesResponse
	if err := t.client.GetJSON(ctx, ep, &resp); err != nil {
		utils.Warn("Currency API failed",
			"from", from,
			"error_type", webapi.ClassifyError(err).String(),
			"error", err)
		return tools.Fail("Could not convert %s to %s", in.From, in.To), nil
	}

	rate, ok := resp.Rates[to]
	if !ok || rate == 0 {
		utils.Warn("Currency not found in rates", "from", from, "to", to)
		return tools.Fail("Could not convert %s to %s", in.From, in.To), nil
	}

	updated := t.now().UTC()
	if resp.TimeLastUpdated > 0 {
		updated = time.Unix(resp.TimeLastUpdated, 0).UTC()
	}

	return tools.OK(Conversion{
		OriginalAmount:  in.Amount,
		FromCurrency:    from,
		ToCurrency:      to,
		ConvertedAmount: math.Round(in.Amount*rate*100) / 100,
		ExchangeRate:    rate,
		UpdatedAt:       updated,
	}), nil
}
