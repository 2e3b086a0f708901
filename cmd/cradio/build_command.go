package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/handiism/cradio/internal/convert"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var (
		outputFlag    string
		hostFlag      string
		userHashFlag  string
		workersFlag   int
		coverSizeFlag int
	)

	cmd := &cobra.Command{
		Use:   "build [station-dir...]",
		Short: "Build station scripts from music directories",
		Long: "Each directory becomes one station. Audio files in it become songs and each\n" +
			"sub-directory becomes a sub-playlist. Without arguments the stations listed\n" +
			"in the configuration file are built.",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			flags := cmd.Flags()
			if flags.Changed("output") {
				settings.OutputDir = outputFlag
			}
			if flags.Changed("host") {
				settings.Uploads.Host = hostFlag
			}
			if flags.Changed("user-hash") {
				settings.Uploads.UserHash = userHashFlag
			}
			if flags.Changed("workers") {
				settings.Uploads.MaxConcurrent = workersFlag
			}
			if flags.Changed("cover-size") {
				settings.Covers.MaxSize = coverSizeFlag
			}
			if err := settings.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			stations := args
			if len(stations) == 0 {
				stations = settings.Stations
			}
			if len(stations) == 0 {
				return errors.New("no station directories given (pass them as arguments or set stations in the config)")
			}

			logger := ctx.newLogger(cmd.ErrOrStderr(), settings.LogLevel())
			deps, err := convert.DefaultDeps(settings, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			manager := convert.NewManager(settings, deps, printEvents(out, ctx.verbose()))

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := manager.Run(runCtx, stations)
			if summary != nil && len(summary.Stations) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderSummary(summary))
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					fmt.Fprintln(out, "Interrupted, cancelled.")
				}
				return err
			}
			if failed := summary.Failed(); failed > 0 {
				return fmt.Errorf("%d of %d stations failed", failed, len(summary.Stations))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output directory (overrides config)")
	cmd.Flags().StringVar(&hostFlag, "host", "", "Upload host key, see 'cradio hosts' (overrides config)")
	cmd.Flags().StringVar(&userHashFlag, "user-hash", "", "User hash for the upload host")
	cmd.Flags().IntVarP(&workersFlag, "workers", "w", 1, "Concurrent uploads or copies per station")
	cmd.Flags().IntVar(&coverSizeFlag, "cover-size", 128, "Cover thumbnail bound in pixels")
	return cmd
}

func printEvents(w io.Writer, verbose bool) func(convert.ProgressEvent) {
	return func(event convert.ProgressEvent) {
		if event.Level == convert.LevelVerbose && !verbose {
			return
		}

		prefix := "   "
		switch event.Level {
		case convert.LevelError:
			prefix = "[error] "
		case convert.LevelWarning:
			prefix = "[warn]  "
		case convert.LevelSuccess:
			prefix = "[ok]    "
		case convert.LevelInfo:
			prefix = "[info]  "
		}

		fmt.Fprintln(w, prefix+event.Message)
	}
}

func renderSummary(summary *convert.Summary) string {
	headers := []string{"Station", "Songs", "Written", "Uploaded", "Local", "Covers", "Result"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, len(summary.Stations))
	for _, r := range summary.Stations {
		result := r.Output
		if r.Err != nil {
			result = "failed: " + r.Err.Error()
		}
		rows = append(rows, []string{
			r.Name,
			strconv.Itoa(r.Songs),
			strconv.Itoa(r.Written),
			strconv.Itoa(r.Uploaded),
			strconv.Itoa(r.Local),
			strconv.Itoa(r.Covers),
			result,
		})
	}
	return renderTable(headers, rows, aligns)
}
