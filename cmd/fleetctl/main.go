package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("error: ")+err.Error())
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func rootCmd() *cobra.Command {
	var apiURL, token string

	root := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Operate a fleet maintenance server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiURL, "api", envOr("FLEET_API_URL", "http://localhost:8080/api"), "API base URL")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("FLEET_TOKEN"), "bearer token sent with every request")

	api := func() *client { return newClient(apiURL, token) }

	root.AddCommand(tokenCmd())
	root.AddCommand(jobCardCmd(api))
	root.AddCommand(notificationsCmd(api))
	root.AddCommand(dueCmd(api))
	root.AddCommand(reassignCmd(api))
	return root
}
