package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-bot/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump a persona's stored utterances",
		Long:  "Print the reply corpus of a trained persona, one utterance per line, in corpus order.",
		Run:   runExport,
	}

	cmd.Flags().StringP("persona", "p", "", "Persona name (required)")
	cmd.MarkFlagRequired("persona")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	name, _ := cmd.Flags().GetString("persona")

	s, err := store.Open(cfg.ModelDB)
	if err != nil {
		exitErr("open model db", err)
	}
	defer s.Close()

	replies, err := s.Replies(cmd.Context(), name)
	if err != nil {
		exitErr("export", err)
	}
	for _, r := range replies {
		fmt.Println(r)
	}
}
