// Интерфейс Провайдера через который работает всё приложение.

package llm

import "context"

// Provider - контракт для любого AI-сервиса.
type Provider interface {
	// Generate отправляет историю сообщений и возвращает ответ модели.
	// Ответ может содержать ToolCalls, если через WithTools переданы
	// определения инструментов.
	Generate(ctx context.Context, messages []Message, opts ...GenerateOption) (Message, error)
}
