// Базовые типы - определяем универсальный язык общения с моделями
package llm

// Role - роль автора сообщения.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message - одно сообщение диалога.
type Message struct {
	Role      Role
	Content   string
	ToolCalls []ToolCall // Заполнено, если модель решила вызвать инструменты
}

// ToolCall - запрос модели на вызов инструмента.
//
// Args - сырая JSON строка в том виде, в каком её прислала модель.
// Разбор и проверка делаются диспетчером инструментов.
type ToolCall struct {
	ID   string
	Name string
	Args string
}

// HasToolCalls сообщает, просит ли сообщение вызвать инструменты.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}
