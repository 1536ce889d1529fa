package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/personetl/internal/config"
	"github.com/JonMunkholm/personetl/internal/core"
	"github.com/JonMunkholm/personetl/internal/pipeline"
)

// errCheckFailed is returned by the check command when any check fails.
var errCheckFailed = errors.New("preflight check failed")

// app carries state shared by the subcommands once the root has loaded it.
type app struct {
	cfg     *config.Config
	connect pipeline.ConnectFunc
}

// NewRootCommand builds the personetl command tree.
// connect may be nil to use MongoDB.
func NewRootCommand(stdout, stderr io.Writer, connect pipeline.ConnectFunc) *cobra.Command {
	a := &app{connect: connect}

	rc := &cobra.Command{
		Use:   "personetl",
		Short: "Load the person feed into a document store.",
		Long: `personetl reads a pipe-delimited person feed, cleans and enriches each
row, writes the resulting documents to a JSON file and inserts them into
MongoDB. Rows that cannot be used are written to a quarantine CSV.

Configuration is read from --config, else $CONFIG_PATH, else config.yaml.
A .env file in the working directory is loaded first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Overload(); err == nil {
				slog.Debug("loaded .env file")
			}

			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("problem getting config flag: %v", err)
			}

			cfg, err := config.Load(config.ResolvePath(path))
			if err != nil {
				return err
			}
			setupLogging(cfg, stderr)
			slog.Debug("configuration loaded", "config", cfg.String())

			a.cfg = cfg
			return nil
		},
	}
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")

	rc.AddCommand(newRunCommand(a, stdout))
	rc.AddCommand(newTransformCommand(a, stdout))
	rc.AddCommand(newLoadCommand(a, stdout))
	rc.AddCommand(newCheckCommand(a, stdout))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

func newRunCommand(a *app, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Extract, transform and load the feed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := pipeline.NewRunner(a.cfg, a.connect).Run(cmd.Context())
			if err != nil {
				return err
			}
			printReport(stdout, rep, true)
			return nil
		},
	}
}

func newTransformCommand(a *app, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "transform",
		Short: "Extract and transform the feed and write the artifacts without loading.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := pipeline.NewRunner(a.cfg, a.connect).Transform(cmd.Context())
			if err != nil {
				return err
			}
			printReport(stdout, rep, false)
			return nil
		},
	}
}

func newLoadCommand(a *app, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Insert the documents of an existing output file.",
		Long: `Insert the documents of file.output into the configured collection.
Use it to retry a load that failed after the transform succeeded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := pipeline.NewRunner(a.cfg, a.connect).Load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "inserted %d of %d documents from %s\n", rep.Inserted, rep.Documents, rep.Output)
			return nil
		},
	}
}

func newCheckCommand(a *app, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the input, output directory and store before a run.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := pipeline.Check(cmd.Context(), a.cfg, a.connect)
			for _, r := range results {
				if r.OK() {
					fmt.Fprintf(stdout, "[✔] %s\n", r.Name)
					continue
				}
				fmt.Fprintf(stdout, "[✘] %s: %v\n", r.Name, r.Err)
			}
			if pipeline.Failed(results) {
				return errCheckFailed
			}
			return nil
		},
	}
}

func printReport(w io.Writer, rep *pipeline.Report, loaded bool) {
	fmt.Fprintf(w, "run %s\n", rep.RunID)
	fmt.Fprintf(w, "  rows read:    %d\n", rep.Rows)
	fmt.Fprintf(w, "  documents:    %d -> %s\n", rep.Documents, rep.Output)
	fmt.Fprintf(w, "  quarantined:  %d -> %s\n", rep.Quarantined, rep.Quarantine)
	if loaded {
		fmt.Fprintf(w, "  inserted:     %d\n", rep.Inserted)
	}
	fmt.Fprintf(w, "  duration:     %s\n", rep.Duration.Round(time.Millisecond))
}

// exitCode maps an error to the process exit status by the phase it failed in.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	switch core.PhaseOf(err) {
	case core.PhaseConfig:
		return 2
	case core.PhaseExtract:
		return 3
	case core.PhaseTransform:
		return 4
	case core.PhaseLoad:
		return 5
	default:
		return 1
	}
}
