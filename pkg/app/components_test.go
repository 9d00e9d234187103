package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/poncho-chat/internal/agent"
	"github.com/ilkoid/poncho-chat/pkg/config"
)

type staticFinder string

func (f staticFinder) FindConfigPath() string { return string(f) }

func TestInitialize_RegistersAllTools(t *testing.T) {
	cfg, err := config.Parse([]byte("app:\n  debug: false\n"))
	require.NoError(t, err)

	comps, err := Initialize(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"get_weather", "add_task", "get_tasks", "complete_task",
		"get_stock_price", "convert_currency", "get_random_quote",
	}, comps.Registry.Names())
	assert.NotNil(t, comps.Metrics)
	assert.Nil(t, comps.LLM)
}

func TestInitialize_NoKeyAnswersWithCapabilityText(t *testing.T) {
	cfg, err := config.Parse([]byte("models:\n  chat:\n    api_key: your_groq_api_key_here\n"))
	require.NoError(t, err)

	comps, err := Initialize(cfg)
	require.NoError(t, err)

	ex := comps.Orchestrator.Run(context.Background(), "What's the weather in Paris?")
	assert.Equal(t, agent.CapabilityText, ex.Response)
	assert.Empty(t, ex.ToolsUsed)
}

func TestInitialize_WithKeyCreatesProvider(t *testing.T) {
	cfg, err := config.Parse([]byte("models:\n  chat:\n    api_key: gsk_real_key_value\n"))
	require.NoError(t, err)

	comps, err := Initialize(cfg)
	require.NoError(t, err)
	assert.NotNil(t, comps.LLM)
}

func TestInitialize_DisabledToolIsSkipped(t *testing.T) {
	cfg, err := config.Parse([]byte(`
tools:
  definitions:
    get_random_quote:
      enabled: false
    get_weather:
      timeout: 3s
`))
	require.NoError(t, err)

	comps, err := Initialize(cfg)
	require.NoError(t, err)
	assert.NotContains(t, comps.Registry.Names(), "get_random_quote")
	assert.Contains(t, comps.Registry.Names(), "get_weather")

	env := comps.Dispatcher.Dispatch(context.Background(), "get_random_quote", "{}")
	assert.Equal(t, "Unknown tool: get_random_quote", env.Error)
}

func TestInitialize_TaskToolsShareStore(t *testing.T) {
	comps, err := Initialize(config.Default())
	require.NoError(t, err)

	env := comps.Dispatcher.Dispatch(context.Background(), "add_task", `{"title":"Buy milk"}`)
	require.True(t, env.Success, env.Error)

	pending, _ := comps.Todo.GetStats()
	assert.Equal(t, 1, pending)
}

func TestInitialize_NilConfig(t *testing.T) {
	_, err := Initialize(nil)
	assert.Error(t, err)
}

func TestInitializeConfig(t *testing.T) {
	cfg, path, err := InitializeConfig(staticFinder(""))
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.NotNil(t, cfg)

	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  addr: \":8080\"\n"), 0o644))

	cfg, path, err = InitializeConfig(staticFinder(file))
	require.NoError(t, err)
	assert.Equal(t, file, path)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	_, _, err = InitializeConfig(staticFinder(filepath.Join(dir, "missing.yaml")))
	assert.Error(t, err)
}

func TestDefaultConfigPathFinder_FlagWins(t *testing.T) {
	f := &DefaultConfigPathFinder{ConfigFlag: "/etc/poncho/config.yaml"}
	assert.Equal(t, "/etc/poncho/config.yaml", f.FindConfigPath())
}
