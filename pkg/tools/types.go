// Интерфейс Tool, конверт результата и структуры определений.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrToolNotFound - инструмент не зарегистрирован.
	ErrToolNotFound = errors.New("tool not found")
	// ErrInvalidArguments - аргументы не разобрались или не прошли схему.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// JSONSchema представляет JSON Schema для параметров инструмента.
//
// Формат соответствует JSON Schema для Function Calling API.
type JSONSchema map[string]any

// ToolDefinition описывает инструмент для LLM (Function Calling API format).
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  JSONSchema `json:"parameters"` // JSON Schema объекта аргументов
}

// Tool - контракт, который должен реализовать любой инструмент.
type Tool interface {
	// Definition возвращает описание инструмента для LLM.
	Definition() ToolDefinition

	// Execute выполняет логику инструмента.
	// args уже разобраны и проверены по схеме из Definition.
	// Ошибка или паника превращаются диспетчером в неуспешный Envelope.
	Execute(ctx context.Context, args Args) (Envelope, error)
}

// Envelope - единый результат выполнения инструмента.
//
// В JSON сериализуется плоско: {"success": true, <поля Payload>} или
// {"success": false, "error": "..."}.
type Envelope struct {
	Success bool
	Error   string
	Payload any // Типизированные данные конкретного инструмента
}

// OK создаёт успешный конверт.
func OK(payload any) Envelope {
	return Envelope{Success: true, Payload: payload}
}

// Fail создаёт неуспешный конверт.
func Fail(format string, args ...any) Envelope {
	return Envelope{Success: false, Error: fmt.Sprintf(format, args...)}
}

// MarshalJSON разворачивает Payload в поля конверта.
func (e Envelope) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any)
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("payload must be a JSON object: %w", err)
		}
	}
	fields["success"] = e.Success
	if !e.Success {
		fields["error"] = e.Error
	}
	return json.Marshal(fields)
}

// CallResult - запись аудита одного вызова инструмента.
type CallResult struct {
	Tool   string   `json:"tool"`
	Args   Args     `json:"args"`
	Result Envelope `json:"result"`
}
