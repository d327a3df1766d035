package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Globals are the flags shared by every command
type Globals struct {
	Config      string `help:"Path to configuration file" default:"config.yaml" type:"path"`
	OutputDir   string `help:"Directory for datasets and screenshots" short:"o"`
	Headless    bool   `help:"Run Chrome without a window"`
	RemoteURL   string `help:"DevTools websocket URL of an already running Chrome" name:"remote-url"`
	Debug       bool   `help:"Enable debug logging"`
	MetricsPort int    `help:"Serve Prometheus metrics on this port" name:"metrics-port"`
}

// CLI is the command line of the research tool
type CLI struct {
	Globals

	Research ResearchCmd `cmd:"" help:"Research a business niche and save the collected data"`
	Search   SearchCmd   `cmd:"" help:"Run a search and print the organic results as JSON"`
	Extract  ExtractCmd  `cmd:"" help:"Load a page and print its structured content as JSON"`
	Click    ClickCmd    `cmd:"" help:"Load a page and click the element showing the given text"`
	Ideas    IdeasCmd    `cmd:"" help:"Print a business idea brief"`
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("Failed to load .env", "err", err)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("niche-research"),
		kong.Description("Browser automation for business niche research."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(&cli.Globals); err != nil {
		log.Error("Command failed", "err", err)
		os.Exit(1)
	}
}
