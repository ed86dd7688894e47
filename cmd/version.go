package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// versionCheckTimeout is the timeout for connecting to a running gateway to
// retrieve its health status.
const versionCheckTimeout = 2 * time.Second

var versionCheckAddr string

// newVersionCmd creates the Cobra command for displaying the application
// version. It also reports whether a gateway is reachable at --addr, since
// this binary serves as both the CLI and the gateway itself.
func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mcp-gateway",
		Long: `Displays the mcp-gateway CLI version and, if a gateway is reachable at
--addr, reports its health.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcp-gateway version %s\n", rootCmd.Version)

			serverCount, err := checkGatewayHealth(versionCheckAddr)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nGateway at %s: not reachable\n", versionCheckAddr)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nGateway at %s: ok (%d server(s) configured)\n", versionCheckAddr, serverCount)
		},
	}
	cmd.Flags().StringVar(&versionCheckAddr, "addr", "http://127.0.0.1:8765", "Gateway address to health-check")
	return cmd
}

// checkGatewayHealth queries a running gateway's /health endpoint.
func checkGatewayHealth(addr string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), versionCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/health", nil)
	if err != nil {
		return 0, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var body struct {
		ServerCount int `json:"serverCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.ServerCount, nil
}
