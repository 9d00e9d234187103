// Package app предоставляет переиспользуемые компоненты для инициализации
// чата в разных контекстах (HTTP сервер, CLI, smoke-тесты tools).
//
// Все entry points в cmd/ собирают приложение одинаково:
//
//	cfg, _, err := app.InitializeConfig(&app.DefaultConfigPathFinder{ConfigFlag: *configPath})
//	comps, err := app.Initialize(cfg)
//	exchange := comps.Orchestrator.Run(ctx, message)
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilkoid/poncho-chat/internal/agent"
	"github.com/ilkoid/poncho-chat/pkg/config"
	"github.com/ilkoid/poncho-chat/pkg/llm"
	"github.com/ilkoid/poncho-chat/pkg/llm/openai"
	"github.com/ilkoid/poncho-chat/pkg/metrics"
	"github.com/ilkoid/poncho-chat/pkg/todo"
	"github.com/ilkoid/poncho-chat/pkg/tools"
	"github.com/ilkoid/poncho-chat/pkg/utils"
	"github.com/ilkoid/poncho-chat/pkg/webapi"
)

// Components содержит все компоненты приложения.
type Components struct {
	Config       *config.AppConfig
	Todo         *todo.Manager
	Registry     *tools.Registry
	Dispatcher   *tools.Dispatcher
	LLM          llm.Provider // nil, если ключ модели не настроен
	Metrics      *metrics.Metrics
	Orchestrator *agent.Orchestrator
}

// ConfigPathFinder определяет стратегию поиска пути к config.yaml.
type ConfigPathFinder interface {
	// FindConfigPath возвращает путь или "", если файла нет.
	FindConfigPath() string
}

// DefaultConfigPathFinder реализует стандартную стратегию поиска config.yaml.
//
// Порядок поиска:
//  1. Флаг -config (если указан, возвращается как есть)
//  2. Текущая директория (./config.yaml)
//  3. Директория бинарника
//  4. Родительская директория (для запуска из cmd/)
type DefaultConfigPathFinder struct {
	// ConfigFlag - значение флага -config, если указан
	ConfigFlag string
}

// FindConfigPath находит путь к config.yaml.
func (f *DefaultConfigPathFinder) FindConfigPath() string {
	if f.ConfigFlag != "" {
		return resolveAbsPath(f.ConfigFlag)
	}

	candidates := []string{"config.yaml"}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), "config.yaml"))
	}
	candidates = append(candidates,
		filepath.Join("..", "config.yaml"),
		filepath.Join("..", "..", "config.yaml"),
	)

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return resolveAbsPath(p)
		}
	}
	return ""
}

// InitializeConfig загружает конфигурацию.
//
// Если файл не найден, конфигурация собирается из переменных окружения
// (config.Default) и путь возвращается пустым. Явно указанный, но
// отсутствующий файл - ошибка.
func InitializeConfig(finder ConfigPathFinder) (*config.AppConfig, string, error) {
	cfgPath := finder.FindConfigPath()
	if cfgPath == "" {
		utils.Info("config.yaml not found, using environment defaults")
		return config.Default(), "", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config from %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}

// Initialize создаёт и связывает все компоненты приложения.
func Initialize(cfg *config.AppConfig) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	chatModel := cfg.Models.Chat.GetDefaults()
	utils.Info("Initializing components",
		"model", chatModel.ModelName,
		"provider", chatModel.Provider,
		"api_key", utils.MaskKey(chatModel.APIKey))

	// 1. Общие зависимости инструментов
	manager := todo.NewManager()
	upstream := webapi.New(cfg.Upstream)

	// 2. Реестр и диспетчер
	registry := tools.NewRegistry()
	dispatcher := tools.NewDispatcher(registry, cfg.Tools.DefaultTimeout)
	if err := SetupTools(registry, dispatcher, cfg, manager, upstream); err != nil {
		return nil, fmt.Errorf("failed to setup tools: %w", err)
	}

	// 3. Модель - только если есть реальный ключ
	var provider llm.Provider
	hasKey := chatModel.HasUsableKey()
	if hasKey {
		provider = openai.NewClient(chatModel)
	} else {
		utils.Warn("Model API key is not configured, chat will answer with capability text")
	}

	// 4. Метрики слушают события оркестратора
	m := metrics.New()

	orch, err := agent.New(agent.Config{
		LLM:            provider,
		HasCredentials: hasKey,
		Dispatcher:     dispatcher,
		SystemPrompt:   cfg.App.SystemPrompt,
		ModelTimeout:   chatModel.Timeout,
		PassTimeout:    cfg.Server.PassBudget(),
		Emitter:        m,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	utils.Info("Components initialized", "tools", registry.Names())

	return &Components{
		Config:       cfg,
		Todo:         manager,
		Registry:     registry,
		Dispatcher:   dispatcher,
		LLM:          provider,
		Metrics:      m,
		Orchestrator: orch,
	}, nil
}

func resolveAbsPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
