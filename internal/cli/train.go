package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-bot/internal/index"
	"github.com/rcliao/persona-bot/internal/persona"
	"github.com/rcliao/persona-bot/internal/store"
	"github.com/rcliao/persona-bot/internal/tokenizer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train persona models from their corpus files",
		Long:  "Build the TF-IDF retrieval index and Markov chain for every configured persona and persist them to the model database.",
		Run:   runTrain,
	}

	cmd.Flags().Int("order", 0, "Markov chain order (overrides config)")
	cmd.Flags().Bool("lemmatize", false, "Fold word inflections during tokenization")

	RootCmd.AddCommand(cmd)
}

func runTrain(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	order, _ := cmd.Flags().GetInt("order")
	if order == 0 {
		order = cfg.MarkovOrder
	}
	lemmatize, _ := cmd.Flags().GetBool("lemmatize")

	opts := persona.TrainOptions{
		Tokenizer:   tokenizer.Config{KeepSentenceMarks: true, Lemmatize: lemmatize},
		Index:       index.DefaultOptions(),
		MarkovOrder: order,
	}

	s, err := store.Open(cfg.ModelDB)
	if err != nil {
		exitErr("open model db", err)
	}
	defer s.Close()

	for _, p := range cfg.Personas {
		fmt.Printf("training %s from %s...\n", p.Name, p.Corpus)
		m, err := persona.TrainFile(p.Name, p.Corpus, opts)
		if err != nil {
			exitErr("train "+p.Name, err)
		}
		if err := s.SaveModel(cmd.Context(), m); err != nil {
			exitErr("save "+p.Name, err)
		}
		fmt.Printf("  %d utterances, %d terms, %d chain prefixes\n",
			len(m.Replies), len(m.Index.Vocab), m.Chain.Len())
	}

	fmt.Printf("models written to %s\n", cfg.ModelDB)
}
