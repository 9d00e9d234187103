// Package std содержит стандартные инструменты poncho-chat.
//
// Задачи (add/list/complete) работают поверх todo.Manager, остальные
// инструменты - адаптеры внешних API через webapi.Client.
// Ни один инструмент не паникует наружу: сбой upstream превращается в
// неуспешный Envelope или в синтетический успешный ответ (демо режим,
// запасные цитаты).
package std

import (
	"hash/fnv"
	"strings"

	"github.com/ilkoid/poncho-chat/pkg/config"
	"github.com/ilkoid/poncho-chat/pkg/tools"
	"github.com/ilkoid/poncho-chat/pkg/webapi"
)

// isDemoKey - ключ не задан или остался плейсхолдером из шаблона.
func isDemoKey(key, placeholder string) bool {
	key = strings.TrimSpace(key)
	return key == "" || key == placeholder
}

// seed даёт стабильное число для строки (регистр не важен).
//
// Демо данные должны быть детерминированы: один и тот же город
// всегда возвращает одну и ту же "погоду".
func seed(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(s))))
	return h.Sum32()
}

// endpoint собирает webapi.Endpoint из настроек инструмента.
func endpoint(toolID string, cfg config.ToolConfig, path string) webapi.Endpoint {
	return webapi.Endpoint{
		ToolID:    toolID,
		BaseURL:   cfg.BaseURL,
		Path:      path,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

func objectSchema(props map[string]any, required ...string) tools.JSONSchema {
	schema := tools.JSONSchema{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
