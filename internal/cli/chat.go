package cli

import (
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-bot/internal/override"
	"github.com/rcliao/persona-bot/internal/responder"
	"github.com/rcliao/persona-bot/internal/session"
	"github.com/rcliao/persona-bot/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the trained personas",
		Long:  "Load the trained models and start the interactive loop. Switch personas with /<name>, leave with /quit.",
		Run:   runChat,
	}

	cmd.Flags().Int64("seed", 0, "Random seed for reproducible sessions (0 = time-based)")
	cmd.Flags().Float64("threshold", 0.55, "Similarity threshold for retrieval (overrides config)")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	seed, _ := cmd.Flags().GetInt64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// The flag only overrides when the operator actually passed it, so a
	// configured (or flagged) threshold of 0 is honored.
	threshold := *cfg.SimilarityThreshold
	if cmd.Flags().Changed("threshold") {
		threshold, _ = cmd.Flags().GetFloat64("threshold")
	}

	rules := override.RuleSet{}
	if cfg.Overrides != "" {
		rules, err = override.Load(cfg.Overrides)
		if err != nil {
			exitErr("load overrides", err)
		}
	}

	s, err := store.Open(cfg.ModelDB)
	if err != nil {
		exitErr("open model db", err)
	}
	defer s.Close()

	respCfg := responder.DefaultConfig()
	respCfg.SimilarityThreshold = threshold
	respCfg.MaxGeneratedTokens = cfg.MaxGeneratedTokens

	responders := make(map[string]*responder.Responder, len(cfg.Personas))
	for _, p := range cfg.Personas {
		m, err := s.LoadModel(cmd.Context(), p.Name)
		if err != nil {
			exitErr("load model "+p.Name, err)
		}
		responders[p.Name] = responder.New(m, rules, respCfg, rng)
	}

	sess, err := session.New(responders)
	if err != nil {
		exitErr("start session", err)
	}
	if err := sess.Run(os.Stdin, os.Stdout); err != nil {
		exitErr("session", err)
	}
}
