package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Плейсхолдеры из шаблонного .env - считаются отсутствующим ключом.
const (
	PlaceholderGroqKey    = "your_groq_api_key_here"
	PlaceholderWeatherKey = "your_weather_api_key_here"
	PlaceholderFinnhubKey = "your_finnhub_api_key_here"
)

// Имена инструментов, которые знает конфигурация.
const (
	ToolWeather  = "get_weather"
	ToolStock    = "get_stock_price"
	ToolCurrency = "convert_currency"
	ToolQuote    = "get_random_quote"
)

// AppConfig - корневая структура конфигурации.
// Она зеркалит структуру config.yaml.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Models   ModelsConfig   `yaml:"models"`
	Tools    ToolsConfig    `yaml:"tools"`
	Upstream UpstreamConfig `yaml:"upstream"`
	App      AppSpecific    `yaml:"app"`
}

// ServerConfig - настройки HTTP сервера.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *ServerConfig) GetDefaults() ServerConfig {
	result := *c

	if result.Addr == "" {
		result.Addr = ":3000"
	}
	if result.ReadTimeout == 0 {
		result.ReadTimeout = 10 * time.Second
	}
	if result.WriteTimeout == 0 {
		// Должен покрывать вызов модели и все инструменты одного запроса
		result.WriteTimeout = 2 * time.Minute
	}
	if result.ShutdownTimeout == 0 {
		result.ShutdownTimeout = 10 * time.Second
	}

	return result
}

// PassBudget - сколько может длиться обработка одного сообщения, чтобы
// ответ успел уйти до WriteTimeout.
func (c ServerConfig) PassBudget() time.Duration {
	if c.WriteTimeout <= 0 {
		return 0
	}
	if c.WriteTimeout > 20*time.Second {
		return c.WriteTimeout - 5*time.Second
	}
	return c.WriteTimeout * 3 / 4
}

// ModelsConfig - настройки AI моделей.
type ModelsConfig struct {
	Chat ModelDef `yaml:"chat"`
}

// ModelDef - параметры конкретной модели.
type ModelDef struct {
	Provider    string        `yaml:"provider"`   // "groq", "openai" и т.д.
	ModelName   string        `yaml:"model_name"` // Реальное имя в API
	APIKey      string        `yaml:"api_key"`    // Поддерживает ${VAR}
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"` // "30s", "1m"
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (m *ModelDef) GetDefaults() ModelDef {
	result := *m

	if result.Provider == "" {
		result.Provider = "groq"
	}
	if result.ModelName == "" {
		result.ModelName = "meta-llama/llama-4-scout-17b-16e-instruct"
	}
	if result.BaseURL == "" && result.Provider == "groq" {
		result.BaseURL = "https://api.groq.com/openai/v1"
	}
	if result.Timeout == 0 {
		result.Timeout = 30 * time.Second
	}

	return result
}

// HasUsableKey сообщает, настроен ли реальный ключ модели.
func (m ModelDef) HasUsableKey() bool {
	return m.APIKey != "" && m.APIKey != PlaceholderGroqKey
}

// ToolsConfig - настройки инструментов.
type ToolsConfig struct {
	// DefaultTimeout - защитный timeout выполнения одного инструмента
	DefaultTimeout time.Duration         `yaml:"default_timeout"`
	Definitions    map[string]ToolConfig `yaml:"definitions"`
}

// ToolConfig - настройки одного инструмента.
type ToolConfig struct {
	Enabled   *bool         `yaml:"enabled"` // nil = включён
	APIKey    string        `yaml:"api_key"` // Поддерживает ${VAR}
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit int           `yaml:"rate_limit"` // Запросов в минуту
	Burst     int           `yaml:"burst"`
}

// IsEnabled возвращает true, если инструмент явно не выключен.
func (t ToolConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// Tool возвращает настройки инструмента с дефолтами.
//
// Неизвестное имя даёт пустой ToolConfig с дефолтными лимитами.
func (c *ToolsConfig) Tool(name string) ToolConfig {
	tc := c.Definitions[name]
	if tc.BaseURL == "" {
		tc.BaseURL = defaultBaseURLs[name]
	}
	if tc.RateLimit == 0 {
		tc.RateLimit = 60
	}
	if tc.Burst == 0 {
		tc.Burst = 5
	}
	return tc
}

var defaultBaseURLs = map[string]string{
	ToolWeather:  "http://api.weatherapi.com",
	ToolStock:    "https://finnhub.io",
	ToolCurrency: "https://api.exchangerate-api.com",
	ToolQuote:    "https://api.quotable.io",
}

// UpstreamConfig - общие настройки HTTP клиента для внешних API.
type UpstreamConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (u *UpstreamConfig) GetDefaults() UpstreamConfig {
	result := *u
	if result.Timeout == 0 {
		result.Timeout = 10 * time.Second
	}
	if result.RetryAttempts == 0 {
		result.RetryAttempts = 2
	}
	return result
}

// AppSpecific - общие настройки приложения.
type AppSpecific struct {
	Debug        bool   `yaml:"debug"`
	LogFile      string `yaml:"log_file"`      // Пусто = stderr
	SystemPrompt string `yaml:"system_prompt"` // Пусто = встроенный промпт
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
func Load(path string) (*AppConfig, error) {
	// 1. Проверяем существование файла
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	// 2. Читаем файл целиком
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(rawBytes)
}

// Parse разбирает YAML из памяти. Переменные окружения ${VAR} подставляются
// до разбора.
func Parse(raw []byte) (*AppConfig, error) {
	contentWithEnv := os.ExpandEnv(string(raw))

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default собирает конфигурацию без файла, только из переменных окружения.
//
// GROQ_API_KEY, WEATHER_API_KEY, FINNHUB_API_KEY.
func Default() *AppConfig {
	cfg := AppConfig{
		Models: ModelsConfig{
			Chat: ModelDef{APIKey: os.Getenv("GROQ_API_KEY")},
		},
		Tools: ToolsConfig{
			Definitions: map[string]ToolConfig{
				ToolWeather: {APIKey: os.Getenv("WEATHER_API_KEY")},
				ToolStock:   {APIKey: os.Getenv("FINNHUB_API_KEY")},
			},
		},
	}
	cfg.applyDefaults()
	return &cfg
}

func (c *AppConfig) applyDefaults() {
	c.Server = c.Server.GetDefaults()
	c.Models.Chat = c.Models.Chat.GetDefaults()
	c.Upstream = c.Upstream.GetDefaults()
	if c.Tools.DefaultTimeout == 0 {
		c.Tools.DefaultTimeout = 15 * time.Second
	}
	if c.Tools.Definitions == nil {
		c.Tools.Definitions = make(map[string]ToolConfig)
	}
}

// validate проверяет значения, которые нельзя исправить дефолтами.
func (c *AppConfig) validate() error {
	if c.Models.Chat.BaseURL == "" && c.Models.Chat.Provider != "openai" {
		return fmt.Errorf("models.chat.base_url is required for provider '%s'", c.Models.Chat.Provider)
	}
	if c.Models.Chat.Timeout < 0 {
		return fmt.Errorf("models.chat.timeout must be positive")
	}
	if c.Tools.DefaultTimeout < 0 {
		return fmt.Errorf("tools.default_timeout must be positive")
	}
	for name, tc := range c.Tools.Definitions {
		if tc.RateLimit < 0 || tc.Burst < 0 {
			return fmt.Errorf("tools.definitions.%s: rate_limit and burst must be positive", name)
		}
	}
	if c.Upstream.RetryAttempts < 0 {
		return fmt.Errorf("upstream.retry_attempts must be positive")
	}
	return nil
}
