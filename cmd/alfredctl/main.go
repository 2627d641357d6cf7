package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"alfred/internal/types"
	"alfred/internal/version"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
	client    *apiClient
)

var rootCmd = &cobra.Command{
	Use:   "alfredctl",
	Short: "ALFRED coordinator command line interface",
	Long: `alfredctl talks to a running ALFRED coordinator.

It lists agents, runs natural-language commands on them, triggers
discovery and health sweeps, and shows command history.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		client = newAPIClient(serverURL, timeout)
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List registered agents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		agents, err := client.Agents(cmd.Context())
		if err != nil {
			return err
		}
		printAgents(agents)
		return nil
	},
}

var connectivityCmd = &cobra.Command{
	Use:   "connectivity <agent-id>",
	Short: "Probe one agent's health and capabilities endpoints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := client.Connectivity(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("  %s (%s)\n", report.AgentID, report.Address)
		printCheck("health", report.Health)
		printCheck("capabilities", report.Capabilities)
		return nil
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <text...>",
	Short: "Run a natural-language command on the best agent",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := client.Execute(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		printResult(result)
		if !result.Success {
			os.Exit(2)
		}
		return nil
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover [host:port...]",
	Short: "Discover agents, optionally on the given hosts only",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := client.Discover(cmd.Context(), args)
		if err != nil {
			return err
		}
		cyan := color.New(color.FgCyan)
		cyan.Printf("  Discovery (%s)\n", report.Source)
		fmt.Printf("  candidates: %d  found: %d  failed: %d  new: %d  took: %s\n",
			len(report.Candidates), report.Found, report.Failed, report.Registered, report.Duration)
		return nil
	},
}

var forceHealth bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run a health sweep",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := client.CheckHealth(cmd.Context(), forceHealth)
		if err != nil {
			return err
		}
		if report.Skipped {
			color.Yellow("  Sweep skipped, last sweep started %s\n", report.StartedAt.Format(time.TimeOnly))
			return nil
		}
		fmt.Printf("  checked: %d  ", report.Checked)
		color.New(color.FgGreen).Printf("healthy: %d  ", report.Healthy)
		color.New(color.FgRed).Printf("unhealthy: %d", report.Unhealthy)
		fmt.Printf("  took: %s\n", report.Duration)
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := client.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		printHistory(entries)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show fleet status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := client.Status(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("  agents: %d  healthy: %d\n", status.TotalCount, status.HealthyCount)
		printAgents(status.Agents)
		printHistory(status.Recent)
		return nil
	},
}

func init() {
	defaultURL := os.Getenv("ALFRED_SERVER")
	if defaultURL == "" {
		defaultURL = "http://localhost:8000"
	}
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", defaultURL, "Coordinator URL (env ALFRED_SERVER)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Request timeout")

	healthCmd.Flags().BoolVarP(&forceHealth, "force", "f", false, "Ignore the minimum sweep interval")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries")

	rootCmd.AddCommand(agentsCmd, connectivityCmd, execCmd, discoverCmd, healthCmd, historyCmd, statusCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printAgents(agents []types.AgentDescriptor) {
	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Agents")
	cyan.Println("  ------")

	if len(agents) == 0 {
		fmt.Println("  (no agents)")
		fmt.Println()
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tNAME\tOS\tADDRESS\tSTATE\tLAST SEEN")
	for _, a := range agents {
		state := green("healthy")
		if !a.IsHealthy {
			state = red("unhealthy")
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Name, a.OSType, a.Address(), state, a.LastSeen.Format("Jan 02 15:04:05"))
	}
	w.Flush()
	fmt.Println()
}

func printCheck(name string, check types.EndpointCheck) {
	if check.Error != "" {
		color.Red("  %-13s error: %s\n", name, check.Error)
		return
	}
	fmt.Printf("  %-13s %d %v\n", name, check.Status, check.Response)
}

func printResult(r *types.CommandResult) {
	if r.Success {
		color.Green("  ✓ %s on %s (%dms)\n", r.Command, r.AgentID, r.ExecutionTimeMs)
	} else {
		color.Red("  ✗ %s on %s: %s\n", r.Command, r.AgentID, r.Error)
	}
	if r.Output != "" {
		fmt.Println(r.Output)
	}
}

func printHistory(entries []types.HistoryEntry) {
	if len(entries) == 0 {
		return
	}
	cyan := color.New(color.FgCyan)
	cyan.Println("  History")
	cyan.Println("  -------")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TIME\tAGENT\tINPUT\tCOMMAND\tOK")
	for _, e := range entries {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%t\n",
			e.Timestamp.Format("Jan 02 15:04:05"), e.AgentName, e.UserInput, e.Parsed.Command, e.Result.Success)
	}
	w.Flush()
	fmt.Println()
}
