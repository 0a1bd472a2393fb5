package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"github.com/fernwell/caplog/internal/capacity"
	"github.com/fernwell/caplog/internal/config"
	"github.com/fernwell/caplog/internal/errors"
	"github.com/fernwell/caplog/internal/ops"
	"github.com/fernwell/caplog/internal/report"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, baseDir string) *cli.App {
	app := &cli.App{
		Name:    "caplog",
		Usage:   "Synthetic capacity log generator",
		Version: Version,
		Commands: []*cli.Command{
			seedCmd(db, cfg),
			generateCmd(cfg),
			listCmd(db),
			fetchCmd(db),
			statsCmd(db),
			exportCmd(db, cfg, baseDir),
			importCmd(db, cfg, baseDir),
			purgeCmd(db),
			reportCmd(db),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// seedCmd creates the seed command.
func seedCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Generate a synthetic capacity log and store it as a dataset",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "years", Aliases: []string{"y"}, Usage: "Years of history to simulate (default from config)"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Dataset name (optional, unique)"},
			&cli.Uint64Flag{Name: "seed", Aliases: []string{"s"}, Usage: "Fixed random seed for reproducible output"},
		},
		Action: func(c *cli.Context) error {
			input := ops.SeedInput{
				Years: c.Int("years"),
			}
			if name := c.String("name"); name != "" {
				input.Name = &name
			}
			if c.IsSet("seed") {
				seed := c.Uint64("seed")
				input.Seed = &seed
			}

			output, err := ops.Seed(db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// generateCmd creates the generate command.
func generateCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate a synthetic capacity log without storing it",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "years", Aliases: []string{"y"}, Usage: "Years of history to simulate (default from config)"},
			&cli.Uint64Flag{Name: "seed", Aliases: []string{"s"}, Usage: "Fixed random seed for reproducible output"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Keep only the newest N observations"},
		},
		Action: func(c *cli.Context) error {
			input := ops.GenerateInput{
				Years: c.Int("years"),
				Limit: c.Int("limit"),
			}
			if c.IsSet("seed") {
				seed := c.Uint64("seed")
				input.Seed = &seed
			}

			output, err := ops.Generate(cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored datasets, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(db, ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch observations from a dataset by ID or name, newest first",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Dataset name"},
			&cli.StringFlag{Name: "state", Usage: "Filter by state: resourced|stretched|depleted"},
			&cli.StringFlag{Name: "category", Usage: "Filter by category: sensory|demand|social"},
			&cli.Int64Flag{Name: "since", Usage: "Inclusive lower bound, epoch milliseconds"},
			&cli.Int64Flag{Name: "until", Usage: "Inclusive upper bound, epoch milliseconds"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 100, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{
				State:    c.String("state"),
				Category: c.String("category"),
				Since:    c.Int64("since"),
				Until:    c.Int64("until"),
				Limit:    c.Int("limit"),
				Offset:   c.Int("offset"),
			}

			// Check for positional ID argument
			if c.NArg() > 0 {
				input.ID = c.Args().First()
			} else {
				input.Name = c.String("name")
			}

			output, err := ops.Fetch(db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Aggregate statistics for a dataset",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Dataset name"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Output format: json|table"},
		},
		Action: func(c *cli.Context) error {
			input := ops.StatsInput{}

			// Check for positional ID argument
			if c.NArg() > 0 {
				input.ID = c.Args().First()
			} else {
				input.Name = c.String("name")
			}

			output, err := ops.Stats(db, input)
			if err != nil {
				return outputError(err)
			}

			switch c.String("format") {
			case "json":
				return outputJSON(output)
			case "table":
				renderStatsTables(output)
				return nil
			default:
				return outputError(errors.NewInvalidArgument(
					fmt.Sprintf("unknown format %q (use json or table)", c.String("format"))))
			}
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a dataset to a JSONL file",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Dataset name"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.caplog/exports/<label>-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ExportInput{
				Path:    c.String("path"),
				BaseDir: baseDir,
			}

			// Check for positional ID argument
			if c.NArg() > 0 {
				input.ID = c.Args().First()
			} else {
				input.Name = c.String("name")
			}

			output, err := ops.Export(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a dataset from a JSONL export file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Name for the imported dataset (optional)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ImportInput{
				Path:    c.String("path"),
				BaseDir: baseDir,
			}
			if name := c.String("name"); name != "" {
				input.Name = &name
			}

			output, err := ops.Import(db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "purge",
		Usage:     "Permanently delete datasets",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Dataset name"},
			&cli.StringFlag{Name: "older-than", Usage: "Purge all datasets seeded more than N days ago (e.g., 30d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}

			// Check for positional ID argument
			if c.NArg() > 0 {
				input.ID = c.Args().First()
			} else {
				input.Name = c.String("name")
			}

			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidArgument(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Purge(db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// reportCmd creates the report command.
func reportCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Render a markdown stats report for a dataset",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Dataset name"},
			&cli.BoolFlag{Name: "html", Usage: "Render the report as HTML instead of markdown"},
		},
		Action: func(c *cli.Context) error {
			input := ops.StatsInput{}

			// Check for positional ID argument
			if c.NArg() > 0 {
				input.ID = c.Args().First()
			} else {
				input.Name = c.String("name")
			}

			output, err := ops.Stats(db, input)
			if err != nil {
				return outputError(err)
			}

			if c.Bool("html") {
				html, err := report.HTML(output)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				fmt.Fprintln(os.Stdout, html)
				return nil
			}

			fmt.Fprint(os.Stdout, report.Markdown(output))
			return nil
		},
	}
}

// renderStatsTables prints dataset statistics as terminal tables.
func renderStatsTables(out *ops.StatsOutput) {
	fmt.Printf("Dataset %s: %d observations over %d days\n\n",
		out.Dataset.Label(), out.Stats.Total, out.SpanDays)

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"State", "Count"})
	for _, s := range []capacity.State{capacity.StateResourced, capacity.StateStretched, capacity.StateDepleted} {
		tw.AppendRow(table.Row{string(s), out.Stats.ByState[string(s)]})
	}
	tw.Render()
	fmt.Println()

	tw = table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Category", "Count"})
	tagged := 0
	for _, cat := range capacity.Categories {
		n := out.Stats.ByCategory[string(cat)]
		tagged += n
		tw.AppendRow(table.Row{string(cat), n})
	}
	tw.AppendRow(table.Row{"(untagged)", out.Stats.Total - tagged})
	tw.Render()
	fmt.Println()

	tw = table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Weekday", "Count"})
	for i, n := range out.Stats.ByWeekday {
		tw.AppendRow(table.Row{time.Weekday(i).String(), n})
	}
	tw.Render()
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var cErr *errors.CaplogError
	if stderrors.As(err, &cErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseDuration parses "30d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 30d")
}
