package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourusername/music-harvest-go/internal/app"
	"github.com/yourusername/music-harvest-go/internal/bootstrap"
	"go.uber.org/zap"
)

const localPollInterval = 500 * time.Millisecond

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run a discovery pass and download what it finds",
	Long: `Runs related-artist expansion, chart traversal and genre search, then
downloads the discovered artists as one batch. By default the server runs the
job; with --local it runs in this process and waits for the batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if local, _ := cmd.Flags().GetBool("local"); local {
			if err := refuseWhileServerRuns(); err != nil {
				return err
			}
			return runLocal(func(ctx context.Context, c *bootstrap.Components) error {
				report, err := c.Discovery.Run(ctx)
				if report != nil {
					printReport(report)
				}
				return err
			})
		}

		ensureServer()
		if err := apiCall(http.MethodPost, "/api/v1/discovery/run", nil, nil); err != nil {
			return err
		}
		fmt.Println("Discovery started on the server")
		if follow, _ := cmd.Flags().GetBool("follow"); follow {
			return followStatus()
		}
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch [artists file]",
	Short: "Download every album of the artists listed in a file",
	Long: `Reads one artist name per line, resolves each artist and downloads all of
its albums as one batch in this process.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocal(func(ctx context.Context, c *bootstrap.Components) error {
			tasks, err := c.Resolver.ResolveArtistsFile(ctx, args[0])
			if err != nil {
				return err
			}
			summary, err := c.Orchestrator.Run(ctx, tasks)
			fmt.Printf("\nSucceeded: %d  Failed: %d  Timed out: %d  Skipped: %d\n",
				summary.Succeeded, summary.Failed, summary.TimedOut, summary.Skipped)
			return err
		})
	},
}

// refuseWhileServerRuns keeps local discovery from sharing the ledger files
// with a live server's scheduled discovery
func refuseWhileServerRuns() error {
	if isServerRunning() {
		return fmt.Errorf("server is running at %s: run discovery there without --local, or stop it first", serverURL)
	}
	return nil
}

// runLocal wires the components from the config file and runs fn with a
// context cancelled on interrupt, printing status lines as they appear
func runLocal(fn func(ctx context.Context, c *bootstrap.Components) error) error {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, eventLogger, err := bootstrap.NewLoggers(config)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer eventLogger.Close()

	components, err := bootstrap.Build(config, log, eventLogger, false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printStatusLines(components.Status, done)
	}()

	runErr := fn(ctx, components)
	close(done)
	<-printed

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	components.Shutdown(shutdownCtx)

	if runErr != nil {
		log.Debug("Local command failed", zap.Error(runErr))
	}
	return runErr
}

// printStatusLines prints new status messages until done is closed. A
// changed batch id restarts the count.
func printStatusLines(status *app.StatusTracker, done <-chan struct{}) {
	var batchID string
	printed := 0
	flush := func() {
		snap := status.Snapshot()
		if snap.BatchID != batchID {
			batchID = snap.BatchID
			printed = 0
		}
		for _, msg := range snap.StatusMessages[printed:] {
			fmt.Println(msg)
		}
		printed = len(snap.StatusMessages)
	}

	ticker := time.NewTicker(localPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			flush()
		case <-done:
			flush()
			return
		}
	}
}

func printReport(report *app.DiscoveryReport) {
	fmt.Println()
	fmt.Println("Discovery Report:")
	if report.Discovery != nil {
		fmt.Printf("  Candidates:     %d\n", len(report.Discovery.Candidates))
		fmt.Printf("  Seeds expanded: %d\n", len(report.Discovery.SeedsExpanded))
		fmt.Printf("  Charts skipped: %d\n", len(report.Discovery.ChartsSkipped))
		fmt.Printf("  Genres failed:  %d\n", len(report.Discovery.GenresFailed))
	}
	fmt.Printf("  Planned:        %d\n", report.Planned)
	fmt.Printf("  Succeeded:      %d\n", report.Summary.Succeeded)
	fmt.Printf("  Failed:         %d\n", report.Summary.Failed+report.Summary.TimedOut)
	fmt.Printf("  Duration:       %s\n", report.Finished.Sub(report.Started).Round(time.Second))
}

func init() {
	discoverCmd.Flags().Bool("local", false, "Run in this process instead of on the server")
	discoverCmd.Flags().BoolP("follow", "f", false, "Follow the download batch started by the server")
}
