package main

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

const (
	serverBinary       = "harvest-server"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the background server",
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		if isServerRunning() {
			fmt.Println("Server already running")
			return nil
		}
		if err := startServerBackground(); err != nil {
			return err
		}
		if err := waitForServerReady(); err != nil {
			return err
		}
		fmt.Println("Server started successfully")
		return nil
	},
}

var serverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the server responds",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isServerRunning() {
			return fmt.Errorf("server not running at %s", serverURL)
		}
		var health struct {
			Version string `json:"version"`
			Batch   struct {
				Running bool `json:"running"`
			} `json:"batch"`
		}
		if err := apiCall(http.MethodGet, "/health", nil, &health); err != nil {
			return err
		}
		fmt.Printf("Server running at %s (version %s, batch running: %t)\n", serverURL, health.Version, health.Batch.Running)
		return nil
	},
}

func init() {
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverStatusCmd)
}

// isServerRunning checks if the server is responding to health checks
func isServerRunning() bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findServerBinary locates the server binary next to the CLI, on PATH or in
// the usual install locations
func findServerBinary() (string, error) {
	if execPath, err := os.Executable(); err == nil {
		serverPath := filepath.Join(filepath.Dir(execPath), serverBinary)
		if _, err := os.Stat(serverPath); err == nil {
			return serverPath, nil
		}
	}

	if serverPath, err := exec.LookPath(serverBinary); err == nil {
		return serverPath, nil
	}

	home, _ := os.UserHomeDir()
	for _, p := range []string{
		filepath.Join("/usr/local/bin", serverBinary),
		filepath.Join(home, "go/bin", serverBinary),
		filepath.Join(home, ".local/bin", serverBinary),
	} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%s binary not found", serverBinary)
}

// startServerBackground starts the server as a detached background process
func startServerBackground() error {
	serverPath, err := findServerBinary()
	if err != nil {
		return err
	}

	args := []string{}
	if configPath != "" {
		args = append(args, "-config", configPath)
	}
	cmd := exec.Command(serverPath, args...)
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	go func() {
		_ = cmd.Wait()
	}()

	return nil
}

// waitForServerReady polls the server until it's ready or timeout
func waitForServerReady() error {
	deadline := time.Now().Add(serverStartTimeout)

	for time.Now().Before(deadline) {
		if isServerRunning() {
			return nil
		}
		time.Sleep(serverPollInterval)
	}

	return fmt.Errorf("server did not start within %v", serverStartTimeout)
}

// ensureServerRunning checks if server is running, starts it if not
func ensureServerRunning() error {
	if isServerRunning() {
		return nil
	}

	fmt.Println("Server not running, starting...")

	if err := startServerBackground(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	if err := waitForServerReady(); err != nil {
		return err
	}

	fmt.Println("Server started successfully")
	return nil
}
