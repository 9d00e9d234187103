// Tools Test Utility - CLI утилита для проверки инструментов чата.
//
// Последовательно вызывает все зарегистрированные инструменты через
// диспетчер (как это делает оркестратор) и печатает конверты и
// отформатированные ответы. Без ключей внешних API работает на демо-данных.
//
// Использование:
//
//	go run ./cmd/tools-test
//	go run ./cmd/tools-test -json results.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilkoid/poncho-chat/pkg/app"
	"github.com/ilkoid/poncho-chat/pkg/reply"
	"github.com/ilkoid/poncho-chat/pkg/tools"
	"github.com/ilkoid/poncho-chat/pkg/utils"
)

// TestResult - результат выполнения инструмента
type TestResult struct {
	Call     tools.CallResult `json:"call"`
	Duration time.Duration    `json:"duration"`
}

// TestSummary - итоговая статистика
type TestSummary struct {
	Total     int       `json:"total"`
	Success   int       `json:"success"`
	Failed    int       `json:"failed"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// testCase - вызов инструмента с аргументами в том виде, в каком их пришлёт модель.
type testCase struct {
	tool string
	args string
}

var testOrder = []testCase{
	{"get_weather", `{"city":"Paris"}`},
	{"add_task", `{"title":"Buy milk","priority":"high"}`},
	{"add_task", `{"title":"Call mom"}`},
	{"get_tasks", `{"filter":"pending"}`},
	{"complete_task", `{"taskId":1}`},
	{"get_tasks", `{}`},
	{"complete_task", `{"taskId":99}`},
	{"get_stock_price", `{"symbol":"aapl"}`},
	{"convert_currency", `{"amount":100,"from":"USD","to":"EUR"}`},
	{"get_random_quote", `{}`},
	{"get_weather", `{}`},
	{"unknown_tool", `{}`},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to config.yaml")
	jsonOut := flag.String("json", "", "Write results as JSON to this file")
	flag.Parse()

	cfg, cfgPath, err := app.InitializeConfig(&app.DefaultConfigPathFinder{ConfigFlag: *configPath})
	if err != nil {
		return err
	}
	if err := utils.InitLogger(cfg.App.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logger: %v\n", err)
	}
	defer utils.Close()

	utils.Info("Tools Test Utility started", "config", cfgPath)

	comps, err := app.Initialize(cfg)
	if err != nil {
		utils.Error("Components initialization failed", "error", err)
		return err
	}

	fmt.Println("╔════════════════════════════════════════════════════════════╗")
	fmt.Println("║              Tools Test Utility - Chat Tools               ║")
	fmt.Println("╚════════════════════════════════════════════════════════════╝")
	fmt.Printf("Registered: %v\n\n", comps.Registry.Names())

	ctx := context.Background()
	summary := TestSummary{StartTime: time.Now()}
	results := make([]TestResult, 0, len(testOrder))

	for _, tc := range testOrder {
		fmt.Printf("🔧 Testing: %s\n", tc.tool)
		fmt.Printf("   Arguments: %s\n", tc.args)

		start := time.Now()
		call := comps.Dispatcher.Execute(ctx, tc.tool, tc.args)
		duration := time.Since(start)

		raw, _ := json.Marshal(call.Result)
		if call.Result.Success {
			summary.Success++
			fmt.Printf("   ✅ Success (%v)\n", duration)
		} else {
			summary.Failed++
			fmt.Printf("   ❌ Failed (%v)\n", duration)
		}
		fmt.Printf("   Envelope: %s\n", raw)
		fmt.Printf("   Reply:\n%s\n\n", reply.Format([]tools.CallResult{call}))

		results = append(results, TestResult{Call: call, Duration: duration})
		summary.Total++
	}

	summary.EndTime = time.Now()

	fmt.Println("═════════════════════════════════════════════════════════════")
	fmt.Printf("Total:     %d\n", summary.Total)
	fmt.Printf("Success:   %d\n", summary.Success)
	fmt.Printf("Failed:    %d\n", summary.Failed)
	fmt.Printf("Duration:  %v\n", summary.EndTime.Sub(summary.StartTime))
	fmt.Println("═════════════════════════════════════════════════════════════")

	if *jsonOut != "" {
		if err := saveResults(*jsonOut, results, summary); err != nil {
			utils.Error("Failed to save results", "error", err)
			return err
		}
	}

	utils.Info("Test completed", "total", summary.Total, "success", summary.Success, "failed", summary.Failed)
	return nil
}

func saveResults(path string, results []TestResult, summary TestSummary) error {
	data := map[string]any{
		"summary": summary,
		"results": results,
	}

	formatted, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	return os.WriteFile(path, formatted, 0644)
}
