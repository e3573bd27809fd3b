package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ukydev/fleet-maintenance/internal/auth"
	"github.com/ukydev/fleet-maintenance/internal/fleet"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

func tokenCmd() *cobra.Command {
	var secret, name string
	var expiry time.Duration

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint an actor token signed with the server secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := auth.NewService(secret, expiry).GenerateToken(args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "JWT signing secret")
	cmd.Flags().StringVar(&name, "name", "", "display name carried in the token")
	cmd.Flags().DurationVar(&expiry, "expiry", 24*time.Hour, "token lifetime")
	return cmd
}

func jobCardCmd(api func() *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobcard",
		Short: "Work with job cards",
	}

	var file string
	record := &cobra.Command{
		Use:   "record",
		Short: "Record a job card from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var req fleet.RecordJobCardRequest
			if err := yaml.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			var res fleet.RecordJobCardResult
			if err := api().do(http.MethodPost, "/jobcards", req, &res); err != nil {
				return err
			}
			printJobCardResult(cmd, res)
			return nil
		},
	}
	record.Flags().StringVarP(&file, "file", "f", "", "job card YAML file")
	_ = record.MarkFlagRequired("file")
	cmd.AddCommand(record)
	return cmd
}

func printJobCardResult(cmd *cobra.Command, res fleet.RecordJobCardResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s for %s, total %.2f\n",
		color.New(color.FgGreen).Sprint("Recorded"), res.JobCard.ID, res.JobCard.VehicleID, res.JobCard.TotalCost)
	for _, sr := range res.ServiceRecords {
		fmt.Fprintf(out, "  service  %-24s %10.2f\n", sr.ServiceType, sr.Cost)
	}
	for _, m := range res.StockMovements {
		line := fmt.Sprintf("  stock    %-24s %d -> %d", m.ItemID, m.Before, m.After)
		if m.Shortage > 0 {
			line += color.New(color.FgYellow).Sprintf(" (short %d)", m.Shortage)
		}
		fmt.Fprintln(out, line)
	}
	for _, r := range res.ProjectedRules {
		fmt.Fprintf(out, "  next     %-24s %s\n", r.ServiceType, nextDue(r))
	}
	for _, p := range res.ClosedPendingWork {
		fmt.Fprintf(out, "  closed   %s\n", p.Title)
	}
}

func nextDue(r models.ScheduledService) string {
	switch r.TriggerType {
	case models.TriggerDistance:
		return fmt.Sprintf("%d km", r.NextDueKM)
	case models.TriggerHours:
		return fmt.Sprintf("%d h", r.NextDueHours)
	}
	if r.NextDueDate != nil {
		return r.NextDueDate.Format("2006-01-02")
	}
	return "-"
}

func priorityColor(p models.Priority) *color.Color {
	switch p {
	case models.PriorityHigh:
		return color.New(color.FgRed)
	case models.PriorityMedium:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgCyan)
}

func notificationsCmd(api func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "List maintenance notifications, most urgent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []models.Notification
			if err := api().do(http.MethodGet, "/notifications", nil, &list); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No notifications")
				return nil
			}
			for _, n := range list {
				fmt.Fprintf(out, "%s %-14s %s: %s\n",
					priorityColor(n.Priority).Sprintf("%-6s", n.Priority), n.Kind, n.Title, n.Message)
			}
			return nil
		},
	}
}

func dueCmd(api func() *client) *cobra.Command {
	var km, hours int

	cmd := &cobra.Command{
		Use:   "due <vehicle-id>",
		Short: "Show services due for a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if cmd.Flags().Changed("km") {
				q.Set("km", strconv.Itoa(km))
			}
			if cmd.Flags().Changed("hours") {
				q.Set("hours", strconv.Itoa(hours))
			}
			path := "/vehicles/" + url.PathEscape(args[0]) + "/due-services"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			var due []models.ScheduledService
			if err := api().do(http.MethodGet, path, nil, &due); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(due) == 0 {
				fmt.Fprintln(out, color.New(color.FgGreen).Sprint("Nothing due"))
				return nil
			}
			for _, r := range due {
				fmt.Fprintf(out, "%s %-24s due at %s\n", color.New(color.FgRed).Sprint("DUE"), r.ServiceType, nextDue(r))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&km, "km", 0, "odometer reading to evaluate against")
	cmd.Flags().IntVar(&hours, "hours", 0, "engine hours to evaluate against")
	return cmd
}

func reassignCmd(api func() *client) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reassign <vehicle-id> [driver-id]",
		Short: "Assign a driver to a vehicle, or unassign when no driver is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"reason": reason}
			if len(args) == 2 {
				body["driver_id"] = args[1]
			}
			var res fleet.ReassignDriverResult
			path := "/vehicles/" + url.PathEscape(args[0]) + "/driver"
			if err := api().do(http.MethodPut, path, body, &res); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, a := range res.Closed {
				fmt.Fprintf(out, "Closed assignment of %s\n", a.DriverID)
			}
			if res.Opened != nil {
				fmt.Fprintf(out, "%s %s to %s\n", color.New(color.FgGreen).Sprint("Assigned"), res.Opened.DriverID, res.Vehicle.RegistrationNumber)
			} else if len(res.Closed) == 0 {
				fmt.Fprintln(out, "No change")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded on the assignment")
	return cmd
}
