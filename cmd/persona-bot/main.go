package main

import (
	"os"

	"github.com/rcliao/persona-bot/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
