package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ilkoid/poncho-chat/pkg/utils"
)

// DefaultToolTimeout - защитный timeout, если не задан явно.
const DefaultToolTimeout = 15 * time.Second

// Dispatcher находит инструмент по имени и выполняет его.
//
// Dispatcher - единственная граница, гарантирующая что любой вызов
// заканчивается ровно одним Envelope: неизвестное имя, битые аргументы,
// ошибка, паника или timeout инструмента превращаются в
// {success:false, error:...} и никогда не уходят к вызывающему.
type Dispatcher struct {
	registry *Registry

	mu                 sync.RWMutex
	defaultToolTimeout time.Duration
	toolTimeouts       map[string]time.Duration
}

// NewDispatcher создаёт диспетчер поверх реестра.
func NewDispatcher(registry *Registry, defaultTimeout time.Duration) *Dispatcher {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultToolTimeout
	}
	return &Dispatcher{
		registry:           registry,
		defaultToolTimeout: defaultTimeout,
		toolTimeouts:       make(map[string]time.Duration),
	}
}

// SetToolTimeout переопределяет timeout для конкретного инструмента.
func (d *Dispatcher) SetToolTimeout(name string, timeout time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if timeout <= 0 {
		delete(d.toolTimeouts, name)
		return
	}
	d.toolTimeouts[name] = timeout
}

// Registry возвращает реестр, с которым работает диспетчер.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch выполняет инструмент и возвращает только конверт.
func (d *Dispatcher) Dispatch(ctx context.Context, name, rawArguments string) Envelope {
	return d.Execute(ctx, name, rawArguments).Result
}

// Execute выполняет инструмент и возвращает запись для аудита.
//
// Args в результате - разобранные аргументы; при неразборчивом JSON
// это пустой объект.
func (d *Dispatcher) Execute(ctx context.Context, name, rawArguments string) CallResult {
	start := time.Now()
	result := CallResult{Tool: name, Args: Args{}}

	defer func() {
		level := utils.Info
		if !result.Result.Success {
			level = utils.Warn
		}
		level("Tool dispatched",
			"tool", name,
			"success", result.Result.Success,
			"error", result.Result.Error,
			"duration_ms", time.Since(start).Milliseconds())
	}()

	args, parseErr := ParseArgs(rawArguments)
	if parseErr == nil {
		result.Args = args
	}

	tool, err := d.registry.Get(name)
	if err != nil {
		result.Result = Fail("Unknown tool: %s", name)
		return result
	}

	if parseErr != nil {
		utils.Debug("Tool arguments are not valid JSON", "tool", name, "raw", rawArguments)
		result.Result = Fail("%s", ErrInvalidArguments.Error())
		return result
	}

	if err := validateArgs(d.registry.schema(name), args); err != nil {
		result.Result = Fail("%s", err.Error())
		return result
	}

	result.Result = d.invoke(ctx, name, tool, args)
	return result
}

// invoke запускает инструмент с timeout и перехватом паники.
//
// Инструмент выполняется в отдельной goroutine, чтобы зависший
// upstream не блокировал весь запрос.
//
// После timeout goroutine инструмента не прерывается, ей только
// отменяется toolCtx. Инструмент, меняющий состояние, обязан проверить
// ctx.Err() перед изменением, иначе оно случится уже после конверта
// с ошибкой timeout.
func (d *Dispatcher) invoke(ctx context.Context, name string, tool Tool, args Args) Envelope {
	timeout := d.timeoutFor(name)
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type execResult struct {
		env Envelope
		err error
	}
	resultChan := make(chan execResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				utils.Error("Tool panicked", "tool", name, "panic", r)
				resultChan <- execResult{err: fmt.Errorf("tool %s failed: %v", name, r)}
			}
		}()
		env, err := tool.Execute(toolCtx, args)
		resultChan <- execResult{env: env, err: err}
	}()

	select {
	case <-toolCtx.Done():
		if errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
			return Fail("Tool %s timed out after %v", name, timeout)
		}
		return Fail("Tool %s was cancelled", name)

	case res := <-resultChan:
		if res.err != nil && errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
			return Fail("Tool %s timed out after %v", name, timeout)
		}
		if res.err != nil {
			msg := res.err.Error()
			if msg == "" {
				msg = fmt.Sprintf("Tool %s failed", name)
			}
			return Fail("%s", msg)
		}
		if !res.env.Success && res.env.Error == "" {
			res.env.Error = fmt.Sprintf("Tool %s failed", name)
		}
		return res.env
	}
}

func (d *Dispatcher) timeoutFor(name string) time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if t, ok := d.toolTimeouts[name]; ok {
		return t
	}
	return d.defaultToolTimeout
}
