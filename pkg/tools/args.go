package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"

	"github.com/ilkoid/poncho-chat/pkg/utils"
)

// Args - разобранные аргументы tool call.
type Args map[string]any

// Decode раскладывает аргументы в типизированную структуру.
//
// Используются json-теги структуры. Включён WeaklyTypedInput: модель
// нередко присылает "3" вместо 3, это не должно ломать вызов.
func (a Args) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]any(a)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

// ParseArgs разбирает сырой JSON аргументов от модели.
//
// Пустая строка означает отсутствие аргументов. Markdown-обёртка и
// текст вокруг объекта срезаются.
func ParseArgs(raw string) (Args, error) {
	cleaned := utils.CleanJsonBlock(raw)
	if cleaned == "" || cleaned == "null" {
		return Args{}, nil
	}

	var args Args
	if err := json.Unmarshal([]byte(cleaned), &args); err == nil {
		if args == nil {
			args = Args{}
		}
		return args, nil
	}

	if extracted := utils.ExtractJSON(cleaned); extracted != "" {
		if err := json.Unmarshal([]byte(extracted), &args); err == nil && args != nil {
			return args, nil
		}
	}

	return nil, ErrInvalidArguments
}

// validateArgs проверяет аргументы по скомпилированной схеме инструмента.
func validateArgs(schema *gojsonschema.Schema, args Args) error {
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(map[string]any(args)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msg := e.Description()
		if f := e.Field(); f != "" && f != "(root)" {
			msg = f + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(msgs, "; "))
}
