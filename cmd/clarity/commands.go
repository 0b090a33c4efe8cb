package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/christopherklint97/clarity/internal/config"
	"github.com/christopherklint97/clarity/internal/model"
	"github.com/christopherklint97/clarity/internal/suggest"
	"github.com/christopherklint97/clarity/internal/tui"
	"github.com/spf13/cobra"
)

const setupInstructions = `Model: Gemma 3n E2B instruction-tuned, GGUF, Q4_K_M quantization (about 2.8 GB)

  1. Download the GGUF file from the model's Hugging Face page.
  2. Place it at:
       %s
     or set [model] path in %s.
  3. Serve it with an OpenAI-compatible server, for example:
       llama-server -m %s --port 8080
  4. Record the checksum below in [model] sha256 so later runs can verify it.
`

func runSetup(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Model.Path), 0755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}

	fmt.Println(tui.Banner())
	fmt.Println()
	fmt.Printf(setupInstructions, cfg.Model.Path, configPath, cfg.Model.Path)
	fmt.Println()

	if err := model.CheckExists(cfg.Model.Path); err != nil {
		fmt.Println(tui.Status(tui.StatusWarning, "Model not installed yet: "+err.Error()))
		return nil
	}

	db := openHistory(cfg, logger)
	if db != nil {
		defer db.Close()
	}
	return verifyModel(context.Background(), os.Stdout, cfg, db, logger)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	clearRuns, _ := cmd.Flags().GetBool("clear")

	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		fmt.Println("History is disabled in the config.")
		return nil
	}
	db := openHistory(cfg, logger)
	if db == nil {
		return fmt.Errorf("history database unavailable (run with --verbose for details)")
	}
	defer db.Close()

	if clearRuns {
		n, err := db.ClearRuns()
		if err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		fmt.Printf("Deleted %d run(s).\n", n)
		return nil
	}

	runs, err := db.RecentRuns(limit)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	for _, r := range runs {
		symbol := "✓"
		detail := ""
		if !r.Success {
			symbol = "✗"
			detail = r.Error
		} else {
			var suggestions []suggest.Suggestion
			if err := json.Unmarshal([]byte(r.Suggestions), &suggestions); err == nil && len(suggestions) > 0 {
				detail = fmt.Sprintf("%d suggestion(s), first: %s", len(suggestions), suggestions[0].Text)
			}
		}
		fmt.Printf("  %s  %s  %-13s  %6.1fs  %s\n",
			symbol,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Mode,
			r.Elapsed.Seconds(),
			oneLine(r.Input, 50),
		)
		if detail != "" {
			fmt.Printf("      %s\n", oneLine(detail, 70))
		}
	}
	return nil
}

func oneLine(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if err := config.WriteDefault(configPath); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	c := exec.Command(editor, configPath)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
	}
	return nil
}
