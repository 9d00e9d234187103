// Package llm provides options pattern for LLM generation parameters.
package llm

import "github.com/ilkoid/poncho-chat/pkg/tools"

// GenerateOptions holds parameters for LLM generation.
// Defaults come from config.yaml (models.chat), options override them per call.
type GenerateOptions struct {
	// Temperature controls randomness in responses (0.0 = deterministic, 1.0 = random)
	Temperature *float64

	// MaxTokens limits the response length; 0 = provider default
	MaxTokens int

	// Tools are the function declarations offered to the model
	Tools []tools.ToolDefinition

	// ToolChoice is "auto", "none" or "required"; empty means "auto" when Tools are set
	ToolChoice string
}

// GenerateOption is a functional option for configuring GenerateOptions.
type GenerateOption func(*GenerateOptions)

// ApplyOptions collects options into GenerateOptions.
func ApplyOptions(opts ...GenerateOption) GenerateOptions {
	var o GenerateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTemperature sets the temperature for generation.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = &temp
	}
}

// WithMaxTokens sets the maximum tokens for generation.
func WithMaxTokens(tokens int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = tokens
	}
}

// WithTools offers tool declarations to the model.
func WithTools(defs []tools.ToolDefinition) GenerateOption {
	return func(o *GenerateOptions) {
		o.Tools = defs
	}
}

// WithToolChoice overrides the tool_choice mode.
func WithToolChoice(choice string) GenerateOption {
	return func(o *GenerateOptions) {
		o.ToolChoice = choice
	}
}
