package std

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/ilkoid/poncho-chat/pkg/config"
	"github.com/ilkoid/poncho-chat/pkg/tools"
	"github.com/ilkoid/poncho-chat/pkg/utils"
	"github.com/ilkoid/poncho-chat/pkg/webapi"
)

var demoConditions = []string{"Sunny", "Cloudy", "Partly cloudy", "Light rain"}

// WeatherReport - ответ get_weather.
type WeatherReport struct {
	City        string  `json:"city"`
	Country     string  `json:"country,omitempty"`
	Temperature int     `json:"temperature"` // °C
	Description string  `json:"description"`
	Humidity    int     `json:"humidity"` // %
	Wind        float64 `json:"wind"`     // km/h
}

// weatherAPIResponse - нужные поля weatherapi.com /v1/current.json.
type weatherAPIResponse struct {
	Location struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		Humidity  int     `json:"humidity"`
		WindKph   float64 `json:"wind_kph"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

// WeatherTool - текущая погода в городе.
//
// Без ключа (или с плейсхолдером) работает в демо режиме и ходит не в
// сеть, а в детерминированный генератор.
type WeatherTool struct {
	client *webapi.Client
	cfg    config.ToolConfig
}

func NewWeatherTool(client *webapi.Client, cfg config.ToolConfig) *WeatherTool {
	return &WeatherTool{client: client, cfg: cfg}
}

func (t *WeatherTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        config.ToolWeather,
		Description: "Get current weather information for a city",
		Parameters: objectSchema(map[string]any{
			"city": stringProp("The city name to get weather for"),
		}, "city"),
	}
}

func (t *WeatherTool) Execute(ctx context.Context, args tools.Args) (tools.Envelope, error) {
	var in struct {
		City string `json:"city"`
	}
	if err := args.Decode(&in); err != nil {
		return tools.Envelope{}, err
	}
	city := strings.TrimSpace(in.City)
	if city == "" {
		return tools.Envelope{}, fmt.Errorf("%w: city is required", tools.ErrInvalidArguments)
	}

	if isDemoKey(t.cfg.APIKey, config.PlaceholderWeatherKey) {
		utils.Debug("Using demo weather data", "city", city)
		return tools.OK(demoWeather(city)), nil
	}

	ep := endpoint(config.ToolWeather, t.cfg, "/v1/current.json")
	ep.Query = url.Values{
		"key": {t.cfg.APIKey},
		"q":   {city},
		"aqi": {"no"},
	}

	var resp weatherAPIResponse
	if err := t.client.GetJSON(ctx, ep, &resp); err != nil {
		utils.Warn("Weather API failed",
			"city", city,
			"error_type", webapi.ClassifyError(err).String(),
			"error", err)
		return tools.Fail("Weather unavailable for %s", city), nil
	}

	return tools.OK(WeatherReport{
		City:        resp.Location.Name,
		Country:     resp.Location.Country,
		Temperature: int(math.Round(resp.Current.TempC)),
		Description: resp.Current.Condition.Text,
		Humidity:    resp.Current.Humidity,
		Wind:        resp.Current.WindKph,
	}), nil
}

// demoWeather: температура 10..39, влажность 40..79, ветер 5..24.
func demoWeather(city string) WeatherReport {
	h := seed(city)
	return WeatherReport{
		City:        city,
		Temperature: 10 + int(h%30),
		Description: demoConditions[(h>>8)%uint32(len(demoConditions))],
		Humidity:    40 + int((h>>16)%40),
		Wind:        float64(5 + (h>>24)%20),
	}
}
