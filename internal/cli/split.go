package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-bot/internal/splitter"
)

func init() {
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a chat log into per-persona corpus files",
		Long:  "Parse a combined chat log (file or stdin) and write one utterance-per-line corpus file per configured persona.",
		Run:   runSplit,
	}

	cmd.Flags().StringP("in", "i", "", "Input chat log (default: stdin)")
	cmd.Flags().StringP("out", "o", "data", "Output directory for corpus files")

	RootCmd.AddCommand(cmd)
}

func runSplit(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	inPath, _ := cmd.Flags().GetString("in")
	outDir, _ := cmd.Flags().GetString("out")

	var in io.Reader = os.Stdin
	if inPath != "" {
		f, err := os.Open(inPath)
		if err != nil {
			exitErr("open log", err)
		}
		defer f.Close()
		in = f
	}

	corpora, err := splitter.Split(in, cfg.AliasMap())
	if err != nil {
		exitErr("split", err)
	}

	paths, err := splitter.WriteCorpora(outDir, corpora)
	if err != nil {
		exitErr("write corpora", err)
	}

	for _, p := range cfg.Personas {
		if path, ok := paths[p.Name]; ok {
			fmt.Printf("wrote %d utterances to %s\n", len(corpora[p.Name]), path)
		} else {
			fmt.Printf("no messages found for %s\n", p.Name)
		}
	}
}
