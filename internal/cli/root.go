// Package cli implements the persona-bot CLI commands.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-bot/internal/config"
)

var (
	configPath string
	dbPath     string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "persona-bot",
	Short: "Persona-conditioned chat responders trained from chat logs",
	Long: "Split a chat transcript by speaker, train a retrieval + Markov model per persona,\n" +
		"and chat with the personas interactively. Single binary, SQLite-backed models.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $PERSONA_BOT_CONFIG or persona-bot.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Model database path (overrides config)")
}

// loadConfig resolves the config file and applies flag overrides.
// A missing default config file falls back to built-in defaults.
func loadConfig() (*config.Config, error) {
	path := configPath
	explicit := path != ""
	if path == "" {
		if env := os.Getenv("PERSONA_BOT_CONFIG"); env != "" {
			path = env
			explicit = true
		} else {
			path = "persona-bot.yaml"
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			cfg = config.Default()
		} else {
			return nil, err
		}
	}

	if dbPath != "" {
		cfg.ModelDB = dbPath
	}
	return cfg, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
