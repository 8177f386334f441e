// sales_trainer — CLI тренажера звонков: подготовка базы, прогон
// тренировочной сессии и аналитика по завершенным сессиям.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tetraminz/sales_trainer/internal/config"
	"github.com/tetraminz/sales_trainer/internal/dialogue"
	"github.com/tetraminz/sales_trainer/internal/engine"
	"github.com/tetraminz/sales_trainer/internal/report"
	"github.com/tetraminz/sales_trainer/internal/scoring"
	"github.com/tetraminz/sales_trainer/internal/store"
)

func main() {
	log.SetFlags(0)
	if err := runCLI(); err != nil {
		log.Fatalf("error: %v", err)
	}
}

func runCLI() error {
	if len(os.Args) < 2 {
		printUsage()
		return nil
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "setup":
		return runSetupCmd(args)
	case "simulate":
		return runSimulateCmd(args)
	case "play":
		return runPlayCmd(args)
	case "report":
		return runReportCmd(args)
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runSetupCmd(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	dbPath := fs.String("db", "", "Path to SQLite DB file (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	path := cfg.DBPath
	if strings.TrimSpace(*dbPath) != "" {
		path = *dbPath
	}
	if err := store.Setup(path); err != nil {
		return err
	}
	fmt.Printf("db_ready=%s\n", path)
	return nil
}

// simulate — офлайн-прогон показательного звонка: скриптовые реплики
// клиента, фиксированные реплики менеджера. Сеть не используется.
func runSimulateCmd(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	sessionID := fs.String("session", "", "Session ID (optional, generated when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	st, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	eng := engine.New(cfg, st, dialogue.NewScripted(dialogue.DemoScript()))

	ctx := context.Background()
	state, err := eng.StartSession(ctx, *sessionID)
	if err != nil {
		return err
	}
	fmt.Printf("session=%s\n\n", state.SessionID)

	for _, line := range demoManagerLines() {
		fmt.Printf("manager> %s\n", line)
		result, err := eng.SubmitManagerTurn(ctx, state.SessionID, line)
		if err != nil {
			return err
		}
		fmt.Printf("client>  %s\n\n", result.CustomerReply)
		if result.Status != engine.StatusActive {
			break
		}
	}

	outcome, err := eng.Finalize(ctx, state.SessionID)
	if err != nil {
		return err
	}
	printOutcome(outcome)
	return nil
}

// play — интерактивная тренировка: реплики менеджера со stdin, клиент
// генерируется OpenAI (нужен OPENAI_API_KEY).
func runPlayCmd(args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	sessionID := fs.String("session", "", "Session ID (optional, generated when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if cfg.Dialogue.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set; use `simulate` for offline runs")
	}

	st, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	eng := engine.New(cfg, st, dialogue.NewOpenAI(cfg.Dialogue, nil))

	ctx := context.Background()
	state, err := eng.StartSession(ctx, *sessionID)
	if err != nil {
		return err
	}
	fmt.Printf("session=%s\n", state.SessionID)
	fmt.Printf("Сценарий: клиент звонит по объявлению %s %s %d года, %s (%s).\n",
		cfg.Vehicle.Brand, cfg.Vehicle.Model, cfg.Vehicle.Year, cfg.Dealership.Name, cfg.Dealership.City)
	fmt.Println("Введите реплику менеджера. Пустая строка завершает сессию.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("manager> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}

		result, err := eng.SubmitManagerTurn(ctx, state.SessionID, line)
		if err != nil {
			return err
		}
		fmt.Printf("client>  %s\n", result.CustomerReply)
		if result.Status != engine.StatusActive {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	outcome, err := eng.Finalize(ctx, state.SessionID)
	if err != nil {
		return err
	}
	fmt.Println()
	printOutcome(outcome)
	return nil
}

func runReportCmd(args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	dbPath := fs.String("db", "", "Path to SQLite DB file (overrides config)")
	mdPath := fs.String("md", "", "Write markdown report to this path (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	path := cfg.DBPath
	if strings.TrimSpace(*dbPath) != "" {
		path = *dbPath
	}

	st, err := store.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := st.ListOutcomes(context.Background())
	if err != nil {
		return err
	}

	metrics, err := report.BuildMetrics(rows)
	if err != nil {
		return err
	}
	fmt.Print(report.FormatMetrics(metrics))

	if strings.TrimSpace(*mdPath) != "" {
		markdown, err := report.BuildMarkdown(rows)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*mdPath, []byte(markdown), 0o644); err != nil {
			return fmt.Errorf("write markdown report: %w", err)
		}
		fmt.Printf("markdown=%s\n", *mdPath)
	}
	return nil
}

func printOutcome(o *engine.SessionOutcome) {
	fmt.Printf("score=%d\n", o.Score)
	fmt.Printf("early_fail=%t\n", o.EarlyFail)
	if o.FailureReason != "" {
		fmt.Printf("failure_reason=%s\n", o.FailureReason)
	}
	for _, dimension := range scoring.AllDimensions() {
		fmt.Printf("dimension[%s]=%d\n", dimension, o.DimensionScores[dimension])
	}
	for _, issue := range o.Issues {
		fmt.Printf("issue[%s]=%s\n", issue.Type, issue.Severity)
	}
	for _, recommendation := range o.Recommendations {
		fmt.Printf("recommendation: %s\n", recommendation)
	}
}

// Реплики менеджера для офлайн-прогона; согласованы со сценарием
// dialogue.DemoScript.
func demoManagerLines() []string {
	return []string{
		"Добрый день! Автосалон Автоград, меня зовут Алексей. Чем могу помочь?",
		"Да, Kia Sportage 2023 года в наличии. Цена два миллиона четыреста пятьдесят тысяч рублей, состояние отличное, один владелец.",
		"Отличный выбор для семьи. Подскажите, как планируете использовать машину? Trade-in у нас тоже работает, оценим ваш автомобиль.",
		"Давайте запишу вас на тест-драйв. Когда вам удобно подъехать?",
		"Записал вас на субботу на десять утра. Продиктуйте, пожалуйста, номер телефона для подтверждения.",
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/sales_trainer setup --db out/trainer.db")
	fmt.Println("  go run ./cmd/sales_trainer simulate --config config.yaml")
	fmt.Println("  go run ./cmd/sales_trainer play --config config.yaml")
	fmt.Println("  go run ./cmd/sales_trainer report --db out/trainer.db --md out/report.md")
}
