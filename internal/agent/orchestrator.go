// Package agent реализует оркестрацию одного прохода "сообщение → ответ".
//
// Orchestrator:
//   - проверяет, что у модели есть ключ (иначе отвечает заготовкой)
//   - делает ровно один запрос к модели со всеми декларациями tools
//   - выполняет запрошенные tools последовательно через Dispatcher
//   - собирает ответ через reply.Format
//
// Сбой модели никогда не уходит наружу: вместо ошибки возвращается
// запасной текст. Второго запроса к модели для "осмысления" результатов
// нет, ответ строится шаблонами.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ilkoid/poncho-chat/pkg/events"
	"github.com/ilkoid/poncho-chat/pkg/llm"
	"github.com/ilkoid/poncho-chat/pkg/reply"
	"github.com/ilkoid/poncho-chat/pkg/tools"
	"github.com/ilkoid/poncho-chat/pkg/utils"
)

const (
	// CapabilityText - ответ, когда ключ модели не настроен.
	CapabilityText = "I'm ready to help! I can assist with weather, tasks, stocks, and currency conversion. What would you like to do?"

	// FallbackText - ответ при любой ошибке обращения к модели.
	FallbackText = "I'm having trouble connecting to my AI service right now, but I can still help you with basic tasks. Try asking about weather, tasks, stocks, or currency conversion!"

	// DefaultSystemPrompt - системная инструкция по умолчанию.
	DefaultSystemPrompt = "You are a helpful AI assistant with access to tools for weather, task management, stock prices, and currency conversion. When a user asks for something that requires a tool, call the appropriate function. You can call multiple functions if needed."

	// DefaultModelTimeout - предел ожидания ответа модели.
	DefaultModelTimeout = 30 * time.Second

	// DefaultPassTimeout - предел всего прохода: модель и все tools.
	DefaultPassTimeout = 90 * time.Second
)

// Exchange - результат одного прохода.
type Exchange struct {
	Response  string
	ToolsUsed []tools.CallResult
	Timestamp time.Time
	RequestID string // Для корреляции логов, клиенту не отдаётся
}

// Config конфигурация для создания Orchestrator.
type Config struct {
	// LLM - провайдер языковой модели. Может быть nil, если ключа нет.
	LLM llm.Provider

	// HasCredentials - настроен ли реальный ключ модели.
	HasCredentials bool

	// Dispatcher - исполнитель инструментов (обязательный)
	Dispatcher *tools.Dispatcher

	// SystemPrompt - системная инструкция; пусто = DefaultSystemPrompt
	SystemPrompt string

	// ModelTimeout - предел ожидания модели; 0 = DefaultModelTimeout
	ModelTimeout time.Duration

	// PassTimeout - предел всего прохода; 0 = DefaultPassTimeout.
	// Должен быть меньше WriteTimeout HTTP сервера.
	PassTimeout time.Duration

	// Emitter - получатель событий прохода (опционально)
	Emitter events.Emitter
}

// Orchestrator выполняет проходы. Состояния между проходами нет,
// поэтому Run можно вызывать из разных горутин одновременно.
type Orchestrator struct {
	llm            llm.Provider
	hasCredentials bool
	dispatcher     *tools.Dispatcher
	systemPrompt   string
	modelTimeout   time.Duration
	passTimeout    time.Duration

	mu      sync.RWMutex
	emitter events.Emitter

	now func() time.Time
}

// New создаёт новый Orchestrator с заданной конфигурацией.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("cfg.Dispatcher is required")
	}
	if cfg.HasCredentials && cfg.LLM == nil {
		return nil, fmt.Errorf("cfg.LLM is required when credentials are configured")
	}

	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = DefaultModelTimeout
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = DefaultPassTimeout
	}

	return &Orchestrator{
		llm:            cfg.LLM,
		hasCredentials: cfg.HasCredentials,
		dispatcher:     cfg.Dispatcher,
		systemPrompt:   cfg.SystemPrompt,
		modelTimeout:   cfg.ModelTimeout,
		passTimeout:    cfg.PassTimeout,
		emitter:        cfg.Emitter,
		now:            time.Now,
	}, nil
}

// SetEmitter подключает получателя событий. nil отключает события.
func (o *Orchestrator) SetEmitter(e events.Emitter) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emitter = e
}

// Run обрабатывает одно сообщение пользователя.
//
// Ошибок не возвращает: любой исход - это Exchange с текстом ответа.
func (o *Orchestrator) Run(ctx context.Context, userMessage string) Exchange {
	requestID := uuid.NewString()
	start := time.Now()

	passCtx, cancel := context.WithTimeout(ctx, o.passTimeout)
	ex := o.run(passCtx, requestID, userMessage)
	cancel()
	ex.RequestID = requestID
	ex.Timestamp = o.now()

	o.emit(ctx, requestID, events.EventDone, events.MessageData{Content: ex.Response})
	utils.Info("Orchestrator pass completed",
		"request_id", requestID,
		"tools_used", len(ex.ToolsUsed),
		"duration_ms", time.Since(start).Milliseconds())

	return ex
}

func (o *Orchestrator) run(ctx context.Context, requestID, userMessage string) Exchange {
	// 1. Без ключа в сеть не ходим
	if !o.hasCredentials {
		utils.Warn("No usable model API key, answering with capability text", "request_id", requestID)
		return Exchange{Response: CapabilityText, ToolsUsed: []tools.CallResult{}}
	}

	// 2. Один запрос к модели
	o.emit(ctx, requestID, events.EventThinking, events.ThinkingData{Query: userMessage})
	utils.Info("Calling model", "request_id", requestID, "message_length", len(userMessage))

	answer, err := o.generate(ctx, userMessage)
	if err != nil {
		utils.Error("Model request failed", "request_id", requestID, "error", err)
		o.emit(ctx, requestID, events.EventError, events.ErrorData{Err: err})
		return Exchange{Response: FallbackText, ToolsUsed: []tools.CallResult{}}
	}

	// 3. Ответ без tools - отдаём текст модели
	if !answer.HasToolCalls() {
		text := answer.Content
		if text == "" {
			text = reply.Greeting
		}
		return Exchange{Response: text, ToolsUsed: []tools.CallResult{}}
	}

	// 4. Tools выполняются последовательно, в порядке от модели
	results := make([]tools.CallResult, 0, len(answer.ToolCalls))
	for _, tc := range answer.ToolCalls {
		// Время прохода вышло: оставшиеся вызовы не выполняются,
		// но остаются в ответе, чтобы клиент получил ответ вовремя
		if ctx.Err() != nil {
			utils.Warn("Pass time limit exceeded, skipping tool", "request_id", requestID, "tool", tc.Name)
			results = append(results, skippedCall(tc))
			continue
		}

		o.emit(ctx, requestID, events.EventToolCall, events.ToolCallData{ToolName: tc.Name, Args: tc.Args})

		callStart := time.Now()
		res := o.dispatcher.Execute(ctx, tc.Name, tc.Args)

		o.emit(ctx, requestID, events.EventToolResult, events.ToolResultData{
			ToolName: tc.Name,
			Success:  res.Result.Success,
			Error:    res.Result.Error,
			Duration: time.Since(callStart),
		})
		results = append(results, res)
	}

	// 5. Шаблонный ответ
	return Exchange{Response: reply.Format(results), ToolsUsed: results}
}

// skippedCall - запись для вызова, на который не хватило времени прохода.
func skippedCall(tc llm.ToolCall) tools.CallResult {
	args, err := tools.ParseArgs(tc.Args)
	if err != nil {
		args = tools.Args{}
	}
	return tools.CallResult{
		Tool:   tc.Name,
		Args:   args,
		Result: tools.Fail("Tool %s skipped: request time limit exceeded", tc.Name),
	}
}

// generate делает запрос к модели с ограничением по времени.
func (o *Orchestrator) generate(ctx context.Context, userMessage string) (llm.Message, error) {
	modelCtx, cancel := context.WithTimeout(ctx, o.modelTimeout)
	defer cancel()

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: o.systemPrompt},
		{Role: llm.RoleUser, Content: userMessage},
	}

	return o.llm.Generate(modelCtx, messages,
		llm.WithTools(o.dispatcher.Registry().Declarations()),
		llm.WithToolChoice("auto"))
}

func (o *Orchestrator) emit(ctx context.Context, requestID string, typ events.EventType, data events.EventData) {
	o.mu.RLock()
	e := o.emitter
	o.mu.RUnlock()
	if e == nil {
		return
	}
	e.Emit(ctx, events.Event{
		Type:      typ,
		Data:      data,
		RequestID: requestID,
		Timestamp: o.now(),
	})
}
