package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/mnemo/internal/errors"
	"github.com/hpungsan/mnemo/internal/ops"
	"github.com/hpungsan/mnemo/internal/web"
)

// maxStdinBytes caps input piped to convert and themes add.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
// app may be nil when only help or version output is needed.
func newCLIApp(app *ops.App) *cli.App {
	cliApp := &cli.App{
		Name:    "mnemo",
		Usage:   "Korean major-system mnemonics for numbers",
		Version: Version,
		Commands: []*cli.Command{
			convertCmd(app),
			lookupCmd(app),
			pinCmd(app),
			digitsCmd(app),
			alphabetCmd(app),
			teachCmd(app),
			taughtCmd(app),
			forgetCmd(app),
			themesCmd(app),
			exportCmd(app),
			importCmd(app),
			serveCmd(app),
			replCmd(app),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	cliApp.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return cliApp
}

// convertCmd creates the convert command.
func convertCmd(app *ops.App) *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a number to keywords (reads stdin when no number is given)",
		ArgsUsage: "<number>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "plain", Usage: "Print only the selected words"},
		},
		Action: func(c *cli.Context) error {
			input := strings.Join(c.Args().Slice(), " ")
			if input == "" && stdinHasData() {
				text, err := readStdin(maxStdinBytes)
				if err != nil {
					return outputError(err)
				}
				input = text
			}
			if input == "" {
				return outputError(errors.NewInvalidRequest("number is required"))
			}

			output, err := app.Convert(c.Context, ops.ConvertInput{Input: input})
			if err != nil {
				return outputError(err)
			}
			// The CLI session is one-shot.
			_ = app.DeleteSession(c.Context, ops.SessionInput{SessionID: output.ID})

			if c.Bool("plain") {
				fmt.Println(strings.Join(output.Words, " "))
				return nil
			}
			return outputJSON(output)
		},
	}
}

// lookupCmd creates the lookup command.
func lookupCmd(app *ops.App) *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "List every candidate keyword for each chunk of a number",
		ArgsUsage: "<number>",
		Action: func(c *cli.Context) error {
			output, err := app.Lookup(c.Context, strings.Join(c.Args().Slice(), " "))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// pinCmd creates the pin command.
func pinCmd(app *ops.App) *cli.Command {
	return &cli.Command{
		Name:      "pin",
		Usage:     "Build a fixed-length PIN from words",
		ArgsUsage: "[word...]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "length", Aliases: []string{"l"}, Usage: "PIN length (default from config)"},
			&cli.StringFlag{Name: "theme", Aliases: []string{"t"}, Usage: "Theme pool used to fill missing digits"},
		},
		Action: func(c *cli.Context) error {
			output, err := app.Pin(c.Context, ops.PinInput{
				Words:  c.Args().Slice(),
				Length: c.Int("length"),
				Theme:  c.String("theme"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// digitsCmd creates the digits command.
func digitsCmd(app *ops.App) *cli.Command {
	return &cli.Command{
		Name:      "digits",
		Usage:     "Decode words back to digits",
		ArgsUsage: "<word...>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "explain", Aliases: []string{"x"}, Usage: "Show the consonant behind each digit"},
		},
		Action: func(c *cli.Context) error {
			output, err := app.Digits(c.Context, c.Args().Slice(), c.Bool("explain"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// alphabetCmd creates the alphabet command.
func alphabetCmd(app *ops.App) *cli.Command {
	return &cli.Command{
		Name:  "alphabet",
		Usage: "Show the digit-to-consonant table",
		Action: func(c *cli.Context) error {
			return outputJSON(map[string]any{"digits": app.Alphabet()})
		},
	}
}

// codeAndWord reads the <code> <word> positional arguments.
func codeAndWord(c *cli.Context) (ops.TeachInput, error) {
	if c.NArg() < 2 {
		return ops.TeachInput{}, errors.NewInvalidRequest("usage: <code> <word>")
	}
	return ops.TeachInput{
		Code: c.Args().First(),
		Word: strings.Join(c.Args().Tail(), " "),
	}, nil
}

// teachCmd creates the teach command.
func teachCmd(app *ops.App) *cli.Command {
	return &cli.Command{
		Name:      "teach",
		Usage:     "Remember a word for a code; it is offered first from then on",
		ArgsUsage: "<code> <word>",
		Action: func(c *cli.Context) error {
			input, err := codeAndWord(c)
			if err != nil {
				return outputError(err)
			}
			output, err := app.Teach(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// taughtCmd creates the taught command.
func taughtCmd(app *ops.App) *cli.Command {
	return &cli.Command{
		Name:  "taught",
		Usage: "List taught words, newest first",
		Action: func(c *cli.Context) error {
			items, err := app.ListTaught(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"items": items})
		},
	}
}

// forgetCmd creates the forget command.
func forgetCmd(app *ops.App) *cli.Command {
	return &cli.Command{
		Name:      "forget",
		Usage:     "Remove a taught word",
		ArgsUsage: "<code> <word>",
		Action: func(c *cli.Context) error {
			input, err := codeAndWord(c)
			if err != nil {
				return outputError(err)
			}
			if err := app.Forget(c.Context, input); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"forgotten": true, "code": input.Code, "word": input.Word})
		},
	}
}

// themesCmd creates the themes command and its subcommands.
func themesCmd(app *ops.App) *cli.Command {
	return &cli.Command{
		Name:  "themes",
		Usage: "List, show or extend theme word pools",
		Action: func(c *cli.Context) error {
			items, err := app.ListThemes(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"items": items})
		},
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show the words a theme offers",
				ArgsUsage: "<theme>",
				Action: func(c *cli.Context) error {
					words, err := app.ThemeWords(c.Context, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"theme": c.Args().First(), "words": words})
				},
			},
			{
				Name:      "add",
				Usage:     "Add words to a theme (reads stdin, one word per line, when no words are given)",
				ArgsUsage: "<theme> [word...]",
				Action: func(c *cli.Context) error {
					words := c.Args().Tail()
					if len(words) == 0 && stdinHasData() {
						text, err := readStdin(maxStdinBytes)
						if err != nil {
							return outputError(err)
						}
						words = strings.Fields(text)
					}
					output, err := app.AddThemeWords(c.Context, ops.AddThemeWordsInput{
						Theme: c.Args().First(),
						Words: words,
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// exportCmd creates the export command.
func exportCmd(app *ops.App) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export keyword rows and taught words to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file path (default: ~/.mnemo/exports/...)"},
			&cli.BoolFlag{Name: "include-global", Usage: "Also export the shared keyword rows"},
		},
		Action: func(c *cli.Context) error {
			output, err := app.Export(c.Context, ops.ExportInput{
				Path:          c.String("path"),
				IncludeGlobal: c.Bool("include-global"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(app *ops.App) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import keyword rows and taught words from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace|skip"},
			&cli.StringFlag{Name: "user", Usage: "Re-own imported user records"},
		},
		Action: func(c *cli.Context) error {
			output, err := app.Import(c.Context, ops.ImportInput{
				Path:   c.String("path"),
				Mode:   ops.ImportMode(c.String("mode")),
				UserID: c.String("user"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(app *ops.App) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local HTTP API with the reveal stream and card pages",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8484, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(app, Version, c.String("bind"), c.Int("port"))
			if err := web.Run(c.Context, srv, app); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// replCmd creates the repl command.
func replCmd(app *ops.App) *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Interactively convert numbers and refine the words",
		Action: func(c *cli.Context) error {
			return runREPL(c.Context, app, os.Stdin, os.Stdout)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// formatError renders err as "[CODE] message".
func formatError(err error) string {
	if mErr, ok := errors.As(err); ok {
		return fmt.Sprintf("[%s] %s", mErr.Code, mErr.Message)
	}
	return err.Error()
}

// outputError formats error for CLI.
func outputError(err error) error {
	return cli.Exit(formatError(err), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("stdin exceeds %d bytes", limit))
	}
	return strings.TrimSpace(string(data)), nil
}
