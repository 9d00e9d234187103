// Package events предоставляет интерфейсы для реализации Port & Adapter паттерна.
//
// Это Port (интерфейс) для подписки на события прохода оркестратора.
// Позволяет подключать любой вывод (CLI, логи, web) без изменения
// логики оркестратора.
//
// # Basic Usage
//
//	emitter := events.NewChanEmitter(16)
//	orch.SetEmitter(emitter)
//
//	go func() {
//	    for event := range emitter.Subscribe().Events() {
//	        switch event.Type {
//	        case events.EventToolCall:
//	            fmt.Println("calling", event.Data.(events.ToolCallData).ToolName)
//	        case events.EventDone:
//	            return
//	        }
//	    }
//	}()
//
// Все реализации интерфейсов должны быть thread-safe.
package events

import (
	"context"
	"time"
)

// EventType представляет тип события.
type EventType string

const (
	// EventThinking отправляется перед запросом к модели.
	EventThinking EventType = "thinking"

	// EventToolCall отправляется перед вызовом инструмента.
	EventToolCall EventType = "tool_call"

	// EventToolResult отправляется когда инструмент вернул результат.
	EventToolResult EventType = "tool_result"

	// EventError отправляется при сбое модели (ответ будет запасным).
	EventError EventType = "error"

	// EventDone отправляется с финальным ответом.
	EventDone EventType = "done"
)

// EventData - sealed interface для данных события.
//
// Только типы из пакета events могут реализовать этот интерфейс.
type EventData interface {
	eventData()
}

// ThinkingData содержит данные для EventThinking.
type ThinkingData struct {
	Query string
}

func (ThinkingData) eventData() {}

// ToolCallData содержит данные о вызове инструмента.
type ToolCallData struct {
	ToolName string
	Args     string // Сырые аргументы от модели
}

func (ToolCallData) eventData() {}

// ToolResultData содержит результат выполнения инструмента.
type ToolResultData struct {
	ToolName string
	Success  bool
	Error    string
	Duration time.Duration
}

func (ToolResultData) eventData() {}

// MessageData содержит данные для EventDone.
type MessageData struct {
	Content string
}

func (MessageData) eventData() {}

// ErrorData содержит данные для EventError.
type ErrorData struct {
	Err error
}

func (ErrorData) eventData() {}

// Event представляет событие одного прохода.
//
// Для каждого EventType существует соответствующий тип данных:
//   - EventThinking: ThinkingData
//   - EventToolCall: ToolCallData
//   - EventToolResult: ToolResultData
//   - EventError: ErrorData
//   - EventDone: MessageData
type Event struct {
	Type      EventType
	Data      EventData
	RequestID string
	Timestamp time.Time
}

// Emitter - это Port для отправки событий.
type Emitter interface {
	// Emit отправляет событие.
	//
	// Если context отменён, операция должна прерваться.
	Emit(ctx context.Context, event Event)
}

// Subscriber позволяет читать события из канала.
type Subscriber interface {
	// Events возвращает read-only канал событий.
	//
	// Канал закрывается при вызове Close() у эмиттера.
	Events() <-chan Event

	// Close освобождает ресурсы подписчика.
	Close()
}
