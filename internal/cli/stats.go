package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-bot/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stored model statistics",
		Run:   runStats,
	}
	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	s, err := store.Open(cfg.ModelDB)
	if err != nil {
		exitErr("open model db", err)
	}
	defer s.Close()

	infos, err := s.ListModels(cmd.Context())
	if err != nil {
		exitErr("list models", err)
	}

	if len(infos) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(infos, "", "  ")
	fmt.Println(string(b))
}
