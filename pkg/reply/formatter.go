// Package reply собирает человекочитаемый ответ из результатов инструментов.
//
// Формат - markdown с эмодзи, его рендерит чат клиент. Функции пакета
// чистые: одинаковый вход всегда даёт одинаковый текст.
package reply

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ilkoid/poncho-chat/pkg/tools"
)

// Greeting - ответ, когда ни один инструмент не вызывался.
const Greeting = "I'm here to help! What would you like to know?"

// TimeLayout - формат времени в ответах (без зависимости от локали).
const TimeLayout = "2006-01-02 15:04:05"

type blockFunc func(raw []byte) (string, error)

// blocks - шаблон успешного результата по имени инструмента.
var blocks = map[string]blockFunc{
	"get_weather":      weatherBlock,
	"add_task":         addTaskBlock,
	"get_tasks":        taskListBlock,
	"complete_task":    completeTaskBlock,
	"get_stock_price":  stockBlock,
	"convert_currency": currencyBlock,
	"get_random_quote": quoteBlock,
}

// Format превращает результаты в один ответ.
//
// Блоки идут в порядке вызовов и разделены пустой строкой. Неуспешный
// результат или инструмент без шаблона дают строку с ошибкой.
func Format(results []tools.CallResult) string {
	if len(results) == 0 {
		return Greeting
	}

	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, formatOne(r))
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func formatOne(r tools.CallResult) string {
	if !r.Result.Success {
		return errorBlock(r.Result.Error)
	}

	block, ok := blocks[r.Tool]
	if !ok {
		return errorBlock("no formatter for " + r.Tool)
	}

	// Payload может быть типизированной структурой или map - читаем
	// через JSON, как его увидит клиент
	raw, err := json.Marshal(r.Result)
	if err != nil {
		return errorBlock(err.Error())
	}
	text, err := block(raw)
	if err != nil {
		return errorBlock(fmt.Sprintf("unreadable %s result: %v", r.Tool, err))
	}
	return text
}

func errorBlock(msg string) string {
	return "❌ **Error:** " + msg
}

func weatherBlock(raw []byte) (string, error) {
	var w struct {
		City        string  `json:"city"`
		Country     string  `json:"country"`
		Temperature float64 `json:"temperature"`
		Description string  `json:"description"`
		Humidity    float64 `json:"humidity"`
		Wind        float64 `json:"wind"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return "", err
	}

	location := w.City
	if w.Country != "" {
		location += ", " + w.Country
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🌤️ **Weather in %s:**\n\n", location)
	fmt.Fprintf(&b, "🌡️ **Temperature:** %s°C\n", num(w.Temperature))
	fmt.Fprintf(&b, "☁️ **Condition:** %s\n", w.Description)
	fmt.Fprintf(&b, "💧 **Humidity:** %s%%\n", num(w.Humidity))
	fmt.Fprintf(&b, "💨 **Wind:** %s km/h", num(w.Wind))
	return b.String(), nil
}

type taskView struct {
	Title       string     `json:"title"`
	Priority    string     `json:"priority"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

func addTaskBlock(raw []byte) (string, error) {
	var r struct {
		Task taskView `json:"task"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("✅ **Task Added Successfully!**\n\n")
	fmt.Fprintf(&b, "📝 **Title:** %s\n", r.Task.Title)
	fmt.Fprintf(&b, "⭐ **Priority:** %s\n", r.Task.Priority)
	fmt.Fprintf(&b, "📅 **Created:** %s", stamp(r.Task.CreatedAt))
	return b.String(), nil
}

func taskListBlock(raw []byte) (string, error) {
	var r struct {
		Tasks []taskView `json:"tasks"`
		Count int        `json:"count"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 **Your Tasks (%d total):**\n\n", r.Count)
	if len(r.Tasks) == 0 {
		b.WriteString("No tasks found. Add some tasks to get started!")
		return b.String(), nil
	}
	for i, task := range r.Tasks {
		status := "⏳"
		if task.Completed {
			status = "✅"
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s **%s** (%s priority)", i+1, status, task.Title, task.Priority)
	}
	return b.String(), nil
}

func completeTaskBlock(raw []byte) (string, error) {
	var r struct {
		Task taskView `json:"task"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", err
	}

	completed := "-"
	if r.Task.CompletedAt != nil {
		completed = stamp(*r.Task.CompletedAt)
	}

	var b strings.Builder
	b.WriteString("✅ **Task Completed!**\n\n")
	fmt.Fprintf(&b, "📝 **Task:** %s\n", r.Task.Title)
	fmt.Fprintf(&b, "🎉 **Completed:** %s", completed)
	return b.String(), nil
}

func stockBlock(raw []byte) (string, error) {
	var s struct {
		Symbol        string `json:"symbol"`
		Price         string `json:"price"`
		Change        string `json:"change"`
		ChangePercent string `json:"changePercent"`
		Note          string `json:"note"`
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}

	icon, sign := "📈", "+"
	if change, err := strconv.ParseFloat(s.Change, 64); err == nil && change < 0 {
		icon, sign = "📉", ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s **%s Stock Price:**\n\n", icon, s.Symbol)
	fmt.Fprintf(&b, "💰 **Current Price:** $%s\n", s.Price)
	fmt.Fprintf(&b, "📊 **Change:** %s%s (%s%%)", sign, s.Change, s.ChangePercent)
	if s.Note != "" {
		fmt.Fprintf(&b, "\nℹ️ **Note:** %s", s.Note)
	}
	return b.String(), nil
}

func currencyBlock(raw []byte) (string, error) {
	var c struct {
		OriginalAmount  float64   `json:"originalAmount"`
		FromCurrency    string    `json:"fromCurrency"`
		ToCurrency      string    `json:"toCurrency"`
		ConvertedAmount float64   `json:"convertedAmount"`
		ExchangeRate    float64   `json:"exchangeRate"`
		UpdatedAt       time.Time `json:"updatedAt"`
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("💱 **Currency Conversion:**\n\n")
	fmt.Fprintf(&b, "💸 **%s %s** = **%s %s**\n",
		num(c.OriginalAmount), c.FromCurrency, num(c.ConvertedAmount), c.ToCurrency)
	fmt.Fprintf(&b, "📊 **Exchange Rate:** 1 %s = %s %s",
		c.FromCurrency, num(c.ExchangeRate), c.ToCurrency)
	if !c.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "\n🕒 **Updated:** %s", stamp(c.UpdatedAt))
	}
	return b.String(), nil
}

func quoteBlock(raw []byte) (string, error) {
	var q struct {
		Quote    string `json:"quote"`
		Author   string `json:"author"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal(raw, &q); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("💭 **Inspirational Quote:**\n\n")
	fmt.Fprintf(&b, "\"%s\"\n\n", q.Quote)
	fmt.Fprintf(&b, "— **%s**", q.Author)
	if q.Category != "" {
		fmt.Fprintf(&b, "\n📂 Category: %s", q.Category)
	}
	return b.String(), nil
}

// num печатает число без лишних нулей: 15, 11.2, 0.92346.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(TimeLayout)
}
