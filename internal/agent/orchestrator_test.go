package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/poncho-chat/pkg/config"
	"github.com/ilkoid/poncho-chat/pkg/events"
	"github.com/ilkoid/poncho-chat/pkg/llm"
	"github.com/ilkoid/poncho-chat/pkg/reply"
	"github.com/ilkoid/poncho-chat/pkg/todo"
	"github.com/ilkoid/poncho-chat/pkg/tools"
	"github.com/ilkoid/poncho-chat/pkg/tools/std"
)

// MockLLMProvider - мок LLM провайдера для тестирования.
type MockLLMProvider struct {
	mu sync.Mutex

	// Response / Err - что вернуть из Generate
	Response llm.Message
	Err      error
	// Block - ждать отмены контекста вместо ответа
	Block bool

	CallCount    int
	LastMessages []llm.Message
	LastOptions  llm.GenerateOptions
}

// Generate реализует llm.Provider интерфейс.
func (m *MockLLMProvider) Generate(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (llm.Message, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastMessages = messages
	m.LastOptions = llm.ApplyOptions(opts...)
	m.mu.Unlock()

	if m.Block {
		<-ctx.Done()
		return llm.Message{}, ctx.Err()
	}
	return m.Response, m.Err
}

// recordingEmitter собирает события в срез.
type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEmitter) Emit(ctx context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func toolCalls(calls ...llm.ToolCall) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, ToolCalls: calls}
}

// newTestOrchestrator собирает оркестратор с задачами и демо котировками.
func newTestOrchestrator(t *testing.T, provider llm.Provider, hasKey bool) (*Orchestrator, *todo.Manager) {
	t.Helper()

	manager := todo.NewManager()
	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		std.NewAddTaskTool(manager),
		std.NewGetTasksTool(manager),
		std.NewCompleteTaskTool(manager),
		std.NewStockTool(nil, config.ToolConfig{}),
	} {
		require.NoError(t, registry.Register(tool))
	}

	orch, err := New(Config{
		LLM:            provider,
		HasCredentials: hasKey,
		Dispatcher:     tools.NewDispatcher(registry, time.Second),
		ModelTimeout:   time.Second,
	})
	require.NoError(t, err)
	return orch, manager
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{HasCredentials: true, Dispatcher: tools.NewDispatcher(tools.NewRegistry(), 0)})
	assert.Error(t, err)
}

func TestRun_NoCredentials(t *testing.T) {
	provider := &MockLLMProvider{}
	orch, _ := newTestOrchestrator(t, provider, false)

	ex := orch.Run(context.Background(), "What's the weather in Paris?")
	assert.Equal(t, CapabilityText, ex.Response)
	assert.Empty(t, ex.ToolsUsed)
	assert.NotNil(t, ex.ToolsUsed)
	assert.Equal(t, 0, provider.CallCount)
	assert.NotEmpty(t, ex.RequestID)
	assert.False(t, ex.Timestamp.IsZero())
}

func TestRun_AddTaskEndToEnd(t *testing.T) {
	provider := &MockLLMProvider{Response: toolCalls(llm.ToolCall{
		ID: "call_1", Name: "add_task", Args: `{"title":"Buy milk"}`,
	})}
	orch, manager := newTestOrchestrator(t, provider, true)

	ex := orch.Run(context.Background(), "Add task: Buy milk")

	require.Len(t, ex.ToolsUsed, 1)
	used := ex.ToolsUsed[0]
	assert.Equal(t, "add_task", used.Tool)
	assert.Equal(t, tools.Args{"title": "Buy milk"}, used.Args)
	assert.True(t, used.Result.Success)

	assert.Contains(t, ex.Response, "✅ **Task Added Successfully!**")
	assert.Contains(t, ex.Response, "📝 **Title:** Buy milk")
	assert.Contains(t, ex.Response, "⭐ **Priority:** medium")

	list, err := manager.List(todo.FilterAll)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].ID)
}

func TestRun_SendsSystemPromptAndAllDeclarations(t *testing.T) {
	provider := &MockLLMProvider{Response: llm.Message{Content: "Hi!"}}
	orch, _ := newTestOrchestrator(t, provider, true)

	orch.Run(context.Background(), "hello")

	require.Len(t, provider.LastMessages, 2)
	assert.Equal(t, llm.RoleSystem, provider.LastMessages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, provider.LastMessages[0].Content)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "hello"}, provider.LastMessages[1])

	names := make([]string, 0, len(provider.LastOptions.Tools))
	for _, d := range provider.LastOptions.Tools {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"add_task", "get_tasks", "complete_task", "get_stock_price"}, names)
	assert.Equal(t, "auto", provider.LastOptions.ToolChoice)
}

func TestRun_PlainTextAnswer(t *testing.T) {
	provider := &MockLLMProvider{Response: llm.Message{Content: "Paris is lovely in spring."}}
	orch, _ := newTestOrchestrator(t, provider, true)

	ex := orch.Run(context.Background(), "Tell me about Paris")
	assert.Equal(t, "Paris is lovely in spring.", ex.Response)
	assert.Empty(t, ex.ToolsUsed)
}

func TestRun_EmptyAnswerGetsGreeting(t *testing.T) {
	provider := &MockLLMProvider{Response: llm.Message{}}
	orch, _ := newTestOrchestrator(t, provider, true)

	ex := orch.Run(context.Background(), "...")
	assert.Equal(t, reply.Greeting, ex.Response)
}

func TestRun_ModelFailureFallsBack(t *testing.T) {
	provider := &MockLLMProvider{Err: errors.New("502 bad gateway")}
	orch, _ := newTestOrchestrator(t, provider, true)
	rec := &recordingEmitter{}
	orch.SetEmitter(rec)

	ex := orch.Run(context.Background(), "weather?")
	assert.Equal(t, FallbackText, ex.Response)
	assert.Empty(t, ex.ToolsUsed)
	assert.Equal(t, []events.EventType{events.EventThinking, events.EventError, events.EventDone}, rec.types())
}

func TestRun_ModelTimeoutFallsBack(t *testing.T) {
	provider := &MockLLMProvider{Block: true}
	orch, _ := newTestOrchestrator(t, provider, true)
	orch.modelTimeout = 20 * time.Millisecond

	ex := orch.Run(context.Background(), "weather?")
	assert.Equal(t, FallbackText, ex.Response)
}

func TestRun_ToolsRunInModelOrder(t *testing.T) {
	provider := &MockLLMProvider{Response: toolCalls(
		llm.ToolCall{ID: "1", Name: "add_task", Args: `{"title":"First","priority":"high"}`},
		llm.ToolCall{ID: "2", Name: "fly_to_moon", Args: `{}`},
		llm.ToolCall{ID: "3", Name: "complete_task", Args: `{"taskId": 1}`},
		llm.ToolCall{ID: "4", Name: "get_stock_price", Args: `{"symbol":"AAPL"}`},
	)}
	orch, manager := newTestOrchestrator(t, provider, true)
	rec := &recordingEmitter{}
	orch.SetEmitter(rec)

	ex := orch.Run(context.Background(), "do many things")

	require.Len(t, ex.ToolsUsed, 4)
	assert.Equal(t, "add_task", ex.ToolsUsed[0].Tool)
	assert.Equal(t, "fly_to_moon", ex.ToolsUsed[1].Tool)
	assert.Equal(t, "Unknown tool: fly_to_moon", ex.ToolsUsed[1].Result.Error)
	assert.True(t, ex.ToolsUsed[2].Result.Success)
	assert.True(t, ex.ToolsUsed[3].Result.Success)

	assert.Contains(t, ex.Response, "❌ **Error:** Unknown tool: fly_to_moon")
	assert.Contains(t, ex.Response, "📈 **AAPL Stock Price:**")

	_, done := manager.GetStats()
	assert.Equal(t, 1, done)

	assert.Equal(t, []events.EventType{
		events.EventThinking,
		events.EventToolCall, events.EventToolResult,
		events.EventToolCall, events.EventToolResult,
		events.EventToolCall, events.EventToolResult,
		events.EventToolCall, events.EventToolResult,
		events.EventDone,
	}, rec.types())
}

func TestRun_InvalidArgumentsDoNotAbortPass(t *testing.T) {
	provider := &MockLLMProvider{Response: toolCalls(
		llm.ToolCall{Name: "add_task", Args: `{"title": `},
		llm.ToolCall{Name: "get_tasks", Args: ``},
	)}
	orch, _ := newTestOrchestrator(t, provider, true)

	ex := orch.Run(context.Background(), "broken")
	require.Len(t, ex.ToolsUsed, 2)
	assert.Equal(t, "invalid arguments", ex.ToolsUsed[0].Result.Error)
	assert.True(t, ex.ToolsUsed[1].Result.Success)
	assert.Contains(t, ex.Response, "No tasks found")
}

func TestRun_CustomSystemPrompt(t *testing.T) {
	provider := &MockLLMProvider{Response: llm.Message{Content: "ok"}}
	orch, err := New(Config{
		LLM:            provider,
		HasCredentials: true,
		Dispatcher:     tools.NewDispatcher(tools.NewRegistry(), 0),
		SystemPrompt:   "Be brief.",
	})
	require.NoError(t, err)

	orch.Run(context.Background(), "hi")
	assert.Equal(t, "Be brief.", provider.LastMessages[0].Content)
	assert.Empty(t, provider.LastOptions.Tools)
}

func TestRun_AddThenListTasks(t *testing.T) {
	provider := &MockLLMProvider{Response: toolCalls(
		llm.ToolCall{ID: "1", Name: "add_task", Args: `{"title":"Buy milk"}`},
		llm.ToolCall{ID: "2", Name: "get_tasks", Args: `{}`},
	)}
	orch, _ := newTestOrchestrator(t, provider, true)

	ex := orch.Run(context.Background(), "Add task: Buy milk, then show my tasks")

	require.Len(t, ex.ToolsUsed, 2)
	assert.Equal(t, "add_task", ex.ToolsUsed[0].Tool)
	assert.Equal(t, "get_tasks", ex.ToolsUsed[1].Tool)

	list := ex.ToolsUsed[1].Result.Payload.(std.TaskList)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Buy milk", list.Tasks[0].Title)

	added := strings.Index(ex.Response, "✅ **Task Added Successfully!**")
	listed := strings.Index(ex.Response, "📋 **Your Tasks (1 total):**")
	require.GreaterOrEqual(t, added, 0)
	require.GreaterOrEqual(t, listed, 0)
	assert.Less(t, added, listed)
	assert.Contains(t, ex.Response[listed:], "1. ⏳ **Buy milk** (medium priority)")
}

// slowTool ждёт отмены контекста.
type slowTool struct{}

func (slowTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "slow_lookup",
		Description: "Never answers in time",
		Parameters:  tools.JSONSchema{"type": "object", "properties": map[string]any{}},
	}
}

func (slowTool) Execute(ctx context.Context, args tools.Args) (tools.Envelope, error) {
	<-ctx.Done()
	return tools.Envelope{}, ctx.Err()
}

func TestRun_PassTimeoutSkipsRemainingTools(t *testing.T) {
	manager := todo.NewManager()
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(slowTool{}))
	require.NoError(t, registry.Register(std.NewAddTaskTool(manager)))

	provider := &MockLLMProvider{Response: toolCalls(
		llm.ToolCall{ID: "1", Name: "slow_lookup", Args: `{}`},
		llm.ToolCall{ID: "2", Name: "add_task", Args: `{"title":"Too late"}`},
	)}
	orch, err := New(Config{
		LLM:            provider,
		HasCredentials: true,
		Dispatcher:     tools.NewDispatcher(registry, 5*time.Second),
		PassTimeout:    50 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	ex := orch.Run(context.Background(), "slow then add")
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, ex.ToolsUsed, 2)
	assert.False(t, ex.ToolsUsed[0].Result.Success)
	assert.False(t, ex.ToolsUsed[1].Result.Success)
	assert.Equal(t, "Tool add_task skipped: request time limit exceeded", ex.ToolsUsed[1].Result.Error)
	assert.Equal(t, tools.Args{"title": "Too late"}, ex.ToolsUsed[1].Args)
	assert.Contains(t, ex.Response, "❌ **Error:** Tool add_task skipped")

	pending, _ := manager.GetStats()
	assert.Equal(t, 0, pending)
}
