package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	tournamentID string
	policy       string
	statsUser    string
)

func init() {
	leaderboardCmd.Flags().StringVar(&tournamentID, "tournament", "", "Rank one tournament instead of every catch")
	leaderboardCmd.Flags().StringVar(&policy, "policy", "score", "Ranking policy: score, weight, quantity, biggest or species")
	statsCmd.Flags().StringVar(&statsUser, "of", "", "User id to show stats for (defaults to --user)")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(onlineCmd)
	rootCmd.AddCommand(offlineCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/health")
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show a leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{"policy": {policy}}
		if tournamentID != "" {
			q.Set("tournament", tournamentID)
		}
		return performRequest(http.MethodGet, "/leaderboard?"+q.Encode())
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the stats of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := "/stats"
		if statsUser != "" {
			endpoint += "?" + url.Values{"user": {statsUser}}.Encode()
		}
		return performRequest(http.MethodGet, endpoint)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drain the pending queues now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/sync")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sync status, pending counts and lifetime counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/sync/status")
	},
}

var onlineCmd = &cobra.Command{
	Use:   "online",
	Short: "Tell the server it is connected",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/connectivity?online=true")
	},
}

var offlineCmd = &cobra.Command{
	Use:   "offline",
	Short: "Tell the server it lost its connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/connectivity?online=false")
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/metrics")
	},
}

func performRequest(method, endpoint string) error {
	url := host + endpoint
	fmt.Printf("Making %s request to %s\n", method, url)

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
