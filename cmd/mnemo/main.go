package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/mnemo/internal/config"
	"github.com/hpungsan/mnemo/internal/db"
	"github.com/hpungsan/mnemo/internal/logging"
	"github.com/hpungsan/mnemo/internal/mcp"
	"github.com/hpungsan/mnemo/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"convert": true, "lookup": true, "pin": true,
	"digits": true, "alphabet": true,
	"teach": true, "taught": true, "forget": true, "themes": true,
	"export": true, "import": true,
	"serve": true, "repl": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _ __ ___  _ __   ___ _ __ ___   ___
  | '_ ` + "`" + ` _ \| '_ \ / _ \ '_ ` + "`" + ` _ \ / _ \
  | | | | | | | | |  __/ | | | | | (_) |
  |_| |_| |_|_| |_|\___|_| |_| |_|\___/

  Numbers to Korean keywords, and back

  Usage: mnemo <command> [options]
         mnemo repl
         mnemo --help

  MCP server mode requires piped input.`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fail("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".mnemo")

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fail("failed to load config: %v", err)
	}
	logger := logging.Setup(cfg.LogLevel)

	ctx := context.Background()
	database, err := db.InitContext(ctx, baseDir, logger)
	if err != nil {
		fail("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}

	app, err := ops.New(database, cfg, ops.Options{
		BaseDir: baseDir,
		Logger:  logger,
		Gemini:  ops.NewGemini(ctx, cfg, logger),
	})
	if err != nil {
		fail("%v", err)
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		cliApp := newCLIApp(app)
		if err := cliApp.Run(os.Args); err != nil {
			database.Close()
			fail("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		database.Close()
		fail("unknown command %q\nRun 'mnemo --help' for usage.", os.Args[1])
	}

	// MCP server mode (default)
	if err := mcp.Run(app, Version); err != nil {
		database.Close()
		fail("%v", err)
	}
}
