package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/christopherklint97/clarity/internal/ai"
	"github.com/christopherklint97/clarity/internal/config"
	"github.com/christopherklint97/clarity/internal/engine"
	"github.com/christopherklint97/clarity/internal/model"
	"github.com/christopherklint97/clarity/internal/notify"
	"github.com/christopherklint97/clarity/internal/store"
	"github.com/christopherklint97/clarity/internal/suggest"
	"github.com/christopherklint97/clarity/internal/tui"
	"github.com/spf13/cobra"
)

// errFailed signals exit status 1 after the failure was already shown.
var errFailed = errors.New("processing failed")

var (
	textFlag        string
	audioFlag       string
	verifyFlag      bool
	interactiveFlag bool
	modelPathFlag   string
	jsonFlag        bool
	verboseFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "clarity",
	Short: "Private, on-device suggestions from a local language model",
	Long: "clarity sends your text or a recording to a local language model, " +
		"validates the structured suggestions it returns and prints them.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Show where to put the model and verify it",
	RunE:  runSetup,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs",
	RunE:  runHistory,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&textFlag, "text", "t", "", "Text input to get suggestions for")
	flags.StringVarP(&audioFlag, "audio", "a", "", "Path to an audio recording to transcribe")
	flags.BoolVar(&verifyFlag, "verify-model", false, "Verify the model file checksum and exit")
	flags.BoolVarP(&interactiveFlag, "interactive", "i", false, "Start an interactive session")
	flags.BoolVar(&jsonFlag, "json", false, "Print the result as JSON")

	rootCmd.PersistentFlags().StringVar(&modelPathFlag, "model-path", "", "Path to the model file (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Log debug output to stderr")

	historyCmd.Flags().Int("limit", 10, "Number of runs to show")
	historyCmd.Flags().Bool("clear", false, "Delete all recorded runs")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, tui.Status(tui.StatusError, err.Error()))
		}
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	if !verboseFlag {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if modelPathFlag != "" {
		cfg.Model.Path = modelPathFlag
	}
	return cfg, nil
}

// openHistory returns nil when history is disabled. Failure to open the
// database is logged and treated as disabled.
func openHistory(cfg *config.Config, logger *slog.Logger) *store.DB {
	if !cfg.History.Enabled {
		return nil
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		logger.Debug("resolving history path failed", "error", err)
		return nil
	}
	db, err := store.Open(path)
	if err != nil {
		logger.Debug("opening history failed", "path", path, "error", err)
		return nil
	}
	return db
}

func newGenerator(cfg *config.Config, logger *slog.Logger) (ai.Generator, error) {
	g := cfg.Generation
	switch g.Provider {
	case "", "openai":
		return ai.NewOpenAI(ai.OpenAIConfig{
			BaseURL:          g.BaseURL,
			APIKey:           g.APIKey,
			Model:            g.Model,
			MaxTokens:        g.MaxTokens,
			Temperature:      g.Temperature,
			TopP:             g.TopP,
			Timeout:          g.Timeout(),
			StructuredOutput: g.StructuredOutput,
		}, logger), nil
	case "claude-cli":
		return ai.NewClaudeCLI(g.Model, logger), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", g.Provider)
	}
}

func newEngine(cfg *config.Config, db *store.DB, logger *slog.Logger) (*engine.Engine, error) {
	gen, err := newGenerator(cfg, logger)
	if err != nil {
		return nil, err
	}
	validator, err := suggest.New(suggest.Options{
		Mode:       suggest.Mode(cfg.Validation.Mode),
		Extraction: suggest.Extraction(cfg.Validation.Extraction),
	})
	if err != nil {
		return nil, fmt.Errorf("invalid validation config: %w", err)
	}

	opts := engine.Options{
		Generator: gen,
		Validator: validator,
		Notifier:  notify.New(cfg.Notifications.Enabled, time.Duration(cfg.Notifications.MinSeconds)*time.Second),
		Logger:    logger,
	}
	if cfg.Model.RequireFile {
		opts.ModelPath = cfg.Model.Path
	}
	if db != nil {
		opts.Recorder = db
	}
	return engine.New(opts), nil
}

// totalMemory is replaced in tests.
var totalMemory = model.SystemMemory

// checkRequirements fails when the machine has too little RAM or the
// configured model file is required but missing.
func checkRequirements(cfg *config.Config, logger *slog.Logger) error {
	req := model.Requirements{
		MinRAMGB:    cfg.Model.MinRAMGB,
		TotalMemory: totalMemory,
		Logger:      logger,
	}
	if cfg.Model.RequireFile {
		req.ModelPath = cfg.Model.Path
	}
	return req.Check()
}

func requirementHint(err error) string {
	if errors.Is(err, model.ErrInsufficientMemory) {
		return "Lower [model] min_ram_gb to run anyway"
	}
	return "Run 'clarity setup' to install the model"
}

func runRoot(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := openHistory(cfg, logger)
	if db != nil {
		defer db.Close()
	}

	if verifyFlag {
		return verifyModel(ctx, os.Stdout, cfg, db, logger)
	}

	if interactiveFlag {
		return runInteractive(cfg, db, logger)
	}

	if (textFlag == "") == (audioFlag == "") {
		_ = cmd.Usage()
		return errors.New("specify exactly one of --text or --audio")
	}

	eng, err := newEngine(cfg, db, logger)
	if err != nil {
		return err
	}

	if !jsonFlag {
		fmt.Println(tui.Banner())
		fmt.Println()
	}

	var result *engine.Result
	if err := checkRequirements(cfg, logger); err != nil {
		if !jsonFlag {
			fmt.Println(tui.Status(tui.StatusWarning, requirementHint(err)))
		}
		result = engine.Failure(eng.ModelName(), err)
	} else if textFlag != "" {
		if !jsonFlag {
			fmt.Println(tui.Status(tui.StatusInfo, "Processing text..."))
		}
		result, err = eng.ProcessText(ctx, textFlag)
	} else {
		if !jsonFlag {
			fmt.Println(tui.Status(tui.StatusInfo, "Processing audio: "+audioFlag))
		}
		result, err = eng.ProcessAudio(ctx, audioFlag)
	}
	if err != nil {
		return err
	}

	if err := printResult(os.Stdout, result); err != nil {
		return err
	}
	if !result.Success {
		return errFailed
	}
	return nil
}

func printResult(w io.Writer, result *engine.Result) error {
	if jsonFlag {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprintln(w, tui.RenderResult(result))
	return err
}

func runInteractive(cfg *config.Config, db *store.DB, logger *slog.Logger) error {
	if err := checkRequirements(cfg, logger); err != nil {
		fmt.Println(tui.Status(tui.StatusError, err.Error()))
		fmt.Println(tui.Status(tui.StatusWarning, requirementHint(err)))
		return errFailed
	}

	eng, err := newEngine(cfg, db, logger)
	if err != nil {
		return err
	}

	app := tui.NewApp(eng, cfg.Generation.Timeout())
	p := tea.NewProgram(app)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	fmt.Printf("Goodbye! %d request(s) this session.\n", len(app.Results()))
	return nil
}

// verifyModel checks the model checksum. With --json it prints the report
// as JSON and nothing else; failures show only in the exit status.
func verifyModel(ctx context.Context, w io.Writer, cfg *config.Config, db *store.DB, logger *slog.Logger) error {
	var cache model.DigestCache
	if db != nil {
		cache = db
	}
	verifier := model.NewVerifier(cfg.Model.SHA256, config.PlaceholderSHA256, cache, logger)

	if !jsonFlag {
		fmt.Fprintln(w, tui.Status(tui.StatusInfo, "Verifying "+cfg.Model.Path))
	}
	report, err := verifier.Verify(ctx, cfg.Model.Path)
	if err != nil {
		logger.Debug("model verification failed", "path", cfg.Model.Path, "error", err)
		if !jsonFlag {
			fmt.Fprintln(w, tui.Status(tui.StatusError, err.Error()))
		}
		return errFailed
	}

	if jsonFlag {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		fmt.Fprintln(w, string(data))
		if !report.OK() {
			return errFailed
		}
		return nil
	}

	fmt.Fprintf(w, "  Size:   %.1f MB\n", float64(report.Size)/(1<<20))
	fmt.Fprintf(w, "  SHA256: %s\n", report.SHA256)

	switch report.Status {
	case model.StatusVerified:
		fmt.Fprintln(w, tui.Status(tui.StatusSuccess, "Model checksum verified"))
	case model.StatusUnverified:
		fmt.Fprintln(w, tui.Status(tui.StatusWarning, "No expected checksum configured; record the value above in [model] sha256"))
	case model.StatusMismatch:
		fmt.Fprintln(w, tui.Status(tui.StatusError, "Checksum mismatch, expected "+report.Expected))
		return errFailed
	}
	return nil
}
