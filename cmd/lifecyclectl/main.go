package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/tutorialcms/internal/cli"
	"github.com/tutorialcms/internal/config"
	"github.com/tutorialcms/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.InitTo(os.Stderr, cfg.AppEnv, cfg.LogLevel)

	if err := cli.NewRootCommand(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
