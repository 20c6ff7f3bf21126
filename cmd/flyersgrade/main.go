package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flyersgrade/flyersgrade/internal/catalog"
	"github.com/flyersgrade/flyersgrade/internal/grading"
	"github.com/flyersgrade/flyersgrade/internal/handler"
	appI18n "github.com/flyersgrade/flyersgrade/internal/i18n"
	"github.com/flyersgrade/flyersgrade/internal/ledger"
	"github.com/flyersgrade/flyersgrade/internal/llm"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flyersgrade",
		Short: "AI-graded A2 Flyers practice server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `flyersgrade --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP grading server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("exercises", "e", "exercises.json", "Path to the exercises JSON file")
	f.String("ledger", "submissions.csv", "Submission ledger path (CSV file or SQLite database)")
	f.String("ledger-backend", "csv", "Ledger backend (csv, sqlite)")
	f.Int("max-items", grading.DefaultMaxItems, "Maximum items graded per exercise")
	f.Int("max-tokens", 500, "Output token budget for chat-completion grading")
	f.String("openai-key", "", "OpenAI API key (or set FLYERSGRADE_OPENAI_KEY)")
	f.String("openai-url", "", "OpenAI-compatible API base URL (empty = api.openai.com)")
	f.String("model", "gpt-4o-mini", "Chat-completion model name")
	f.String("hf-token", "", "Hugging Face API token (or set FLYERSGRADE_HF_TOKEN)")
	f.String("hf-url", "", "Hugging Face inference endpoint URL (empty = zephyr-7b-beta)")
	f.Duration("hf-timeout", 60*time.Second, "Inference endpoint request timeout")
	f.StringP("lang", "l", "en", "Feedback language (en, vi)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the submission ledger as CSV",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("ledger", "submissions.csv", "Submission ledger path (CSV file or SQLite database)")
	f.String("ledger-backend", "csv", "Ledger backend (csv, sqlite)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("FLYERSGRADE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("flyersgrade")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/flyersgrade")
	v.AddConfigPath("/etc/flyersgrade")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cat, err := catalog.Load(v.GetString("exercises"))
	if err != nil {
		return fmt.Errorf("load exercises: %w", err)
	}
	slog.Info("loaded exercise catalog", "path", v.GetString("exercises"), "count", cat.Len())

	led, err := ledger.Open(v.GetString("ledger-backend"), v.GetString("ledger"))
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer led.Close()

	provider := llm.FromConfig(llm.Config{
		OpenAIAPIKey:  v.GetString("openai-key"),
		OpenAIBaseURL: v.GetString("openai-url"),
		Model:         v.GetString("model"),
		MaxTokens:     v.GetInt("max-tokens"),
		HFToken:       v.GetString("hf-token"),
		HFModelURL:    v.GetString("hf-url"),
		Timeout:       v.GetDuration("hf-timeout"),
	})
	if llm.Configured(provider) {
		slog.Info("AI provider selected", "provider", provider.Name())
	} else {
		slog.Warn("no AI provider configured; short_answers exercises will grade as zero")
	}

	engine := grading.NewEngine(cat, provider, led, v.GetInt("max-items"))
	h := handler.New(cat, engine, led)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"exercises", cat.Len(),
		"ledger_backend", v.GetString("ledger-backend"),
		"provider", provider.Name(),
		"lang", v.GetString("lang"),
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	led, err := ledger.Open(v.GetString("ledger-backend"), v.GetString("ledger"))
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer led.Close()

	data, err := led.Export()
	if err != nil {
		return fmt.Errorf("export ledger: %w", err)
	}
	if data == nil {
		return fmt.Errorf("ledger %s has no submissions", v.GetString("ledger"))
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
