package app

import (
	"fmt"

	"github.com/ilkoid/poncho-chat/pkg/config"
	"github.com/ilkoid/poncho-chat/pkg/todo"
	"github.com/ilkoid/poncho-chat/pkg/tools"
	"github.com/ilkoid/poncho-chat/pkg/tools/std"
	"github.com/ilkoid/poncho-chat/pkg/utils"
	"github.com/ilkoid/poncho-chat/pkg/webapi"
)

// toolBuilder создаёт инструмент из его настроек.
type toolBuilder struct {
	name  string
	build func(tc config.ToolConfig) tools.Tool
}

// SetupTools регистрирует стандартные инструменты.
//
// Порядок регистрации фиксирован и совпадает с порядком деклараций,
// которые увидит модель. Инструмент с enabled: false пропускается;
// timeout из tools.definitions.<name> переопределяет default_timeout.
func SetupTools(
	registry *tools.Registry,
	dispatcher *tools.Dispatcher,
	cfg *config.AppConfig,
	manager *todo.Manager,
	client *webapi.Client,
) error {
	builders := []toolBuilder{
		{config.ToolWeather, func(tc config.ToolConfig) tools.Tool { return std.NewWeatherTool(client, tc) }},
		{"add_task", func(config.ToolConfig) tools.Tool { return std.NewAddTaskTool(manager) }},
		{"get_tasks", func(config.ToolConfig) tools.Tool { return std.NewGetTasksTool(manager) }},
		{"complete_task", func(config.ToolConfig) tools.Tool { return std.NewCompleteTaskTool(manager) }},
		{config.ToolStock, func(tc config.ToolConfig) tools.Tool { return std.NewStockTool(client, tc) }},
		{config.ToolCurrency, func(tc config.ToolConfig) tools.Tool { return std.NewCurrencyTool(client, tc) }},
		{config.ToolQuote, func(tc config.ToolConfig) tools.Tool { return std.NewQuoteTool(client, tc) }},
	}

	for _, b := range builders {
		tc := cfg.Tools.Tool(b.name)
		if !tc.IsEnabled() {
			utils.Info("Tool disabled by config", "tool", b.name)
			continue
		}

		if err := registry.Register(b.build(tc)); err != nil {
			return fmt.Errorf("register %s: %w", b.name, err)
		}
		if tc.Timeout > 0 {
			dispatcher.SetToolTimeout(b.name, tc.Timeout)
		}
		utils.Debug("Tool registered", "tool", b.name, "api_key", utils.MaskKey(tc.APIKey))
	}

	return nil
}
