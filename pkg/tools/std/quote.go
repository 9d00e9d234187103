package std

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/ilkoid/poncho-chat/pkg/config"
	"github.com/ilkoid/poncho-chat/pkg/tools"
	"github.com/ilkoid/poncho-chat/pkg/utils"
	"github.com/ilkoid/poncho-chat/pkg/webapi"
)

// Quote - ответ get_random_quote.
type Quote struct {
	Quote    string `json:"quote"`
	Author   string `json:"author"`
	Category string `json:"category,omitempty"`
}

var fallbackQuotes = []Quote{
	{Quote: "The only way to do great work is to love what you do.", Author: "Steve Jobs"},
	{Quote: "Innovation distinguishes between a leader and a follower.", Author: "Steve Jobs"},
	{Quote: "Life is what happens to you while you're busy making other plans.", Author: "John Lennon"},
	{Quote: "The future belongs to those who believe in the beauty of their dreams.", Author: "Eleanor Roosevelt"},
	{Quote: "It is during our darkest moments that we must focus to see the light.", Author: "Aristotle"},
}

// quotableResponse - ответ api.quotable.io/random.
type quotableResponse struct {
	Content string   `json:"content"`
	Author  string   `json:"author"`
	Tags    []string `json:"tags"`
}

// QuoteTool - случайная вдохновляющая цитата.
//
// Если API недоступен, отдаёт цитаты из встроенного списка по кругу.
// Инструмент никогда не завершается неуспехом.
type QuoteTool struct {
	client *webapi.Client
	cfg    config.ToolConfig
	next   atomic.Uint32
}

func NewQuoteTool(client *webapi.Client, cfg config.ToolConfig) *QuoteTool {
	return &QuoteTool{client: client, cfg: cfg}
}

func (t *QuoteTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        config.ToolQuote,
		Description: "Get a random inspirational quote to motivate and inspire the user",
		Parameters:  objectSchema(map[string]any{}),
	}
}

func (t *QuoteTool) Execute(ctx context.Context, args tools.Args) (tools.Envelope, error) {
	var resp quotableResponse
	err := t.client.GetJSON(ctx, endpoint(config.ToolQuote, t.cfg, "/random"), &resp)
	if err == nil && strings.TrimSpace(resp.Content) != "" {
		category := strings.Join(resp.Tags, ", ")
		if category == "" {
			category = "General"
		}
		return tools.OK(Quote{Quote: resp.Content, Author: resp.Author, Category: category}), nil
	}

	if err != nil {
		utils.Warn("Quote API failed, using fallback",
			"error_type", webapi.ClassifyError(err).String(),
			"error", err)
	}
	return tools.OK(t.fallback()), nil
}

func (t *QuoteTool) fallback() Quote {
	i := (t.next.Add(1) - 1) % uint32(len(fallbackQuotes))
	q := fallbackQuotes[i]
	q.Category = "Inspirational"
	return q
}
