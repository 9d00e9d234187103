// Chat CLI - консольный клиент чата без HTTP.
//
// С аргументами выполняет один запрос, без аргументов читает запросы
// построчно из stdin. Ход выполнения (вызовы инструментов) печатается
// в stderr, ответ в stdout.
//
// Использование:
//
//	go run ./cmd/chat-cli "Add task: Buy milk"
//	echo "Convert 100 USD to EUR" | go run ./cmd/chat-cli
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ilkoid/poncho-chat/pkg/app"
	"github.com/ilkoid/poncho-chat/pkg/events"
	"github.com/ilkoid/poncho-chat/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to config.yaml")
	debug := flag.Bool("debug", false, "Enable debug logging")
	quiet := flag.Bool("quiet", false, "Do not print progress events")
	flag.Parse()

	cfg, _, err := app.InitializeConfig(&app.DefaultConfigPathFinder{ConfigFlag: *configPath})
	if err != nil {
		return err
	}

	// Логи в файл или в никуда: stdout занят ответами
	if cfg.App.LogFile == "" && !*debug {
		utils.SetOutput(nil)
	} else if err := utils.InitLogger(cfg.App.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logger: %v\n", err)
	}
	utils.SetDebug(*debug)

	ctx, shutdown := utils.SetupGracefulShutdownWithContext()
	defer shutdown()

	comps, err := app.Initialize(cfg)
	if err != nil {
		return err
	}

	emitter := events.NewChanEmitter(16)
	comps.Orchestrator.SetEmitter(events.Fanout(emitter, comps.Metrics))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		printProgress(emitter.Subscribe(), *quiet)
	}()
	defer func() {
		emitter.Close()
		wg.Wait()
	}()

	if query := strings.TrimSpace(strings.Join(flag.Args(), " ")); query != "" {
		fmt.Println(comps.Orchestrator.Run(ctx, query).Response)
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		fmt.Println(comps.Orchestrator.Run(ctx, query).Response)
		fmt.Println()

		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}

// printProgress печатает события прохода в stderr до закрытия канала.
func printProgress(sub events.Subscriber, quiet bool) {
	defer sub.Close()
	for event := range sub.Events() {
		if quiet {
			continue
		}
		switch data := event.Data.(type) {
		case events.ThinkingData:
			fmt.Fprintln(os.Stderr, "… thinking")
		case events.ToolCallData:
			fmt.Fprintf(os.Stderr, "🔧 %s %s\n", data.ToolName, data.Args)
		case events.ToolResultData:
			if data.Success {
				fmt.Fprintf(os.Stderr, "   ✅ %s (%v)\n", data.ToolName, data.Duration)
			} else {
				fmt.Fprintf(os.Stderr, "   ❌ %s: %s\n", data.ToolName, data.Error)
			}
		case events.ErrorData:
			fmt.Fprintf(os.Stderr, "⚠️  model error: %v\n", data.Err)
		}
	}
}
