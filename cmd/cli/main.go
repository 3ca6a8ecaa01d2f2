package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/yourusername/music-harvest-go/internal/app"
	"github.com/yourusername/music-harvest-go/internal/domain"
)

var (
	serverURL   string
	noAutoStart bool
	configPath  string
	rootCmd     = &cobra.Command{
		Use:   "harvest",
		Short: "Music Harvest CLI - Spotify catalog discovery and spotdl downloads",
		Long: `A command-line interface for searching the Spotify catalog, downloading
selections through spotdl and running artist discovery.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:5001", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file for local commands")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(tracksCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cookieCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serverCmd)

	cookieCmd.AddCommand(cookieSetCmd)
	cookieCmd.AddCommand(cookieShowCmd)
	seedCmd.AddCommand(seedAddCmd)
	configCmd.AddCommand(configInitCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// apiCall sends a JSON request and decodes the JSON response into out.
// Non-2xx responses become errors carrying the server's message.
func apiCall(method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serverURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

var searchCmd = &cobra.Command{
	Use:   "search [artist name]",
	Short: "Search an artist and list its albums",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var result app.ArtistAlbums
		name := strings.Join(args, " ")
		if err := apiCall(http.MethodGet, "/api/v1/artists/search?name="+url.QueryEscape(name), nil, &result); err != nil {
			return err
		}

		fmt.Printf("Artist: %s (id %s, popularity %d)\n\n", result.Artist.Name, result.Artist.ID, result.Artist.Popularity)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SELECT\tALBUM\tTYPE\tRELEASED")
		for _, album := range result.Albums {
			fmt.Fprintf(w, "album-%s\t%s\t%s\t%s\n", album.ID, truncate(album.Name, 50), album.AlbumType, album.ReleaseDate)
		}
		return w.Flush()
	},
}

var tracksCmd = &cobra.Command{
	Use:   "tracks [album id]",
	Short: "List the tracks of an album",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var result struct {
			Tracks []domain.Track `json:"tracks"`
		}
		if err := apiCall(http.MethodGet, "/api/v1/albums/"+url.PathEscape(args[0])+"/tracks", nil, &result); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SELECT\tTRACK")
		for _, track := range result.Tracks {
			fmt.Fprintf(w, "track-%s\t%s\n", track.ID, truncate(track.Name, 60))
		}
		return w.Flush()
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [artist id] [album-<id>|track-<id>...]",
	Short: "Download selected albums and tracks of a searched artist",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		payload := map[string]interface{}{
			"artist_id":      args[0],
			"selected_items": args[1:],
		}
		var result struct {
			BatchID string `json:"batch_id"`
			Items   int    `json:"items"`
		}
		if err := apiCall(http.MethodPost, "/api/v1/downloads", payload, &result); err != nil {
			return err
		}

		fmt.Printf("Download started!\n")
		fmt.Printf("Batch: %s\n", result.BatchID)
		fmt.Printf("Items: %d\n", result.Items)

		if follow, _ := cmd.Flags().GetBool("follow"); follow {
			return followStatus()
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the progress of the current batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		if follow, _ := cmd.Flags().GetBool("follow"); follow {
			return followStatus()
		}

		var status domain.DownloadStatus
		if err := apiCall(http.MethodGet, "/api/v1/status", nil, &status); err != nil {
			return err
		}
		printStatus(status)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finished downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		query := url.Values{}
		if batchID, _ := cmd.Flags().GetString("batch"); batchID != "" {
			query.Set("batch_id", batchID)
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
			query.Set("limit", strconv.Itoa(limit))
		}

		var result struct {
			Records []domain.DownloadRecord `json:"records"`
		}
		if err := apiCall(http.MethodGet, "/api/v1/history?"+query.Encode(), nil, &result); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BATCH\tKIND\tNAME\tSTATE\tEXIT\tFINISHED")
		for _, r := range result.Records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				truncate(r.BatchID, 8),
				r.Kind,
				truncate(r.Name, 40),
				r.State,
				r.ExitCode,
				r.FinishedAt.Format(time.DateTime))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if stats, _ := cmd.Flags().GetBool("stats"); stats {
			var s domain.HistoryStats
			if err := apiCall(http.MethodGet, "/api/v1/history/stats", nil, &s); err != nil {
				return err
			}
			fmt.Println()
			fmt.Println("History Statistics:")
			fmt.Printf("  Total:     %d\n", s.Total)
			fmt.Printf("  Succeeded: %d\n", s.Succeeded)
			fmt.Printf("  Failed:    %d\n", s.Failed)
			fmt.Printf("  Timed out: %d\n", s.TimedOut)
			fmt.Printf("  Skipped:   %d\n", s.Skipped)
			fmt.Printf("  Batches:   %d\n", s.Batches)
		}
		return nil
	},
}

var cookieCmd = &cobra.Command{
	Use:   "cookie",
	Short: "Manage the downloader cookie file",
}

var cookieSetCmd = &cobra.Command{
	Use:   "set [file]",
	Short: "Replace the cookie file with the content of file (- for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var (
			content []byte
			err     error
		)
		if args[0] == "-" {
			content, err = io.ReadAll(os.Stdin)
		} else {
			content, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read cookie content: %w", err)
		}

		var result struct {
			Path string `json:"path"`
		}
		if err := apiCall(http.MethodPut, "/api/v1/cookie", map[string]string{"content": string(content)}, &result); err != nil {
			return err
		}
		fmt.Printf("Cookie file updated: %s\n", result.Path)
		return nil
	},
}

var cookieShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show where the cookie file lives and whether it exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var result struct {
			Path   string `json:"path"`
			Exists bool   `json:"exists"`
		}
		if err := apiCall(http.MethodGet, "/api/v1/cookie", nil, &result); err != nil {
			return err
		}
		fmt.Printf("Path:   %s\n", result.Path)
		fmt.Printf("Exists: %t\n", result.Exists)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Manage discovery seed artists",
}

var seedAddCmd = &cobra.Command{
	Use:   "add [artist name]",
	Short: "Nominate an artist as a discovery seed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var result struct {
			Artist domain.Artist `json:"artist"`
			Added  bool          `json:"added"`
		}
		payload := map[string]string{"artist": strings.Join(args, " ")}
		if err := apiCall(http.MethodPost, "/api/v1/seeds", payload, &result); err != nil {
			return err
		}

		if result.Added {
			fmt.Printf("Seed added: %s (%s)\n", result.Artist.Name, result.Artist.ID)
		} else {
			fmt.Printf("%s (%s) was already processed or seeded\n", result.Artist.Name, result.Artist.ID)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "./configs/config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			if force, _ := cmd.Flags().GetBool("force"); !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
		}

		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", path)
		return nil
	},
}

// followStatus prints streamed status messages until the batch stops running
func followStatus() error {
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/api/v1/status/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to status stream: %w", err)
	}
	defer conn.Close()

	for {
		var update domain.StatusUpdate
		if err := conn.ReadJSON(&update); err != nil {
			return fmt.Errorf("status stream closed: %w", err)
		}

		for _, msg := range update.Messages {
			fmt.Println(msg)
		}

		if !update.Running {
			fmt.Printf("\nProgress: %d%% (%d/%d)\n", update.Progress, update.CompletedItems, update.TotalItems)
			return nil
		}
	}
}

func printStatus(status domain.DownloadStatus) {
	state := "idle"
	if status.Running {
		state = "running"
	}
	fmt.Printf("Batch:    %s\n", status.BatchID)
	fmt.Printf("State:    %s\n", state)
	fmt.Printf("Progress: %d%% (%d/%d)\n", status.Progress, status.CompletedItems, status.TotalItems)
	if len(status.StatusMessages) > 0 {
		fmt.Println()
		for _, msg := range status.StatusMessages {
			fmt.Println(msg)
		}
	}
}

func init() {
	downloadCmd.Flags().BoolP("follow", "f", false, "Follow progress until the batch finishes")
	statusCmd.Flags().BoolP("follow", "f", false, "Follow progress until the batch finishes")
	historyCmd.Flags().StringP("batch", "b", "", "Only show records of a batch")
	historyCmd.Flags().IntP("limit", "n", 0, "Maximum number of records")
	historyCmd.Flags().Bool("stats", false, "Also print history statistics")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
