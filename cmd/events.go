package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/scaffold/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recent orchestrator events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := store.QueryOpts{}
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.AgentID, _ = cmd.Flags().GetString("agent")
		opts.RunID, _ = cmd.Flags().GetString("run")

		s, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		if showHints, _ := cmd.Flags().GetBool("hints"); showHints {
			hintEvents, err := s.EventRepo().QueryHintEvents(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("query hint events: %w", err)
			}
			printHintEvents(cmd.OutOrStdout(), hintEvents)
			return nil
		}

		events, err := s.EventRepo().QueryCurriculumEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		printEvents(cmd.OutOrStdout(), events)
		return nil
	},
}

func printEvents(w io.Writer, events []store.CurriculumEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	fmt.Fprintf(w, "%-6s  %-19s  %-5s  %-14s  %-24s  %-16s  %-3s  %s\n",
		"Seq", "Timestamp", "Tick", "Agent", "Kind", "Step", "Try", "Detail")
	fmt.Fprintln(w, strings.Repeat("─", 110))

	for _, e := range events {
		detail := e.Decision
		if e.Message != "" {
			if detail != "" {
				detail += " "
			}
			detail += e.Message
		}
		fmt.Fprintf(w, "%-6d  %-19s  %-5d  %-14s  %-24s  %-16s  %-3d  %s\n",
			e.Sequence,
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Tick,
			truncate(e.AgentID, 14),
			e.Kind,
			truncate(e.StepName, 16),
			e.Attempt,
			detail,
		)
	}
}

func printHintEvents(w io.Writer, events []store.HintEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No hints found.")
		return
	}

	fmt.Fprintf(w, "%-6s  %-19s  %-14s  %-4s  %-12s  %-8s  %s\n",
		"Seq", "Timestamp", "Agent", "Step", "Hint", "Source", "Text")
	fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, e := range events {
		fmt.Fprintf(w, "%-6d  %-19s  %-14s  %-4d  %-12s  %-8s  %s\n",
			e.Sequence,
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			truncate(e.AgentID, 14),
			e.StepOrder,
			truncate(e.HintID, 12),
			e.Source,
			e.Text,
		)
	}
}

func init() {
	eventsCmd.Flags().IntP("limit", "n", 50, "Number of events to show")
	eventsCmd.Flags().StringP("agent", "a", "", "Only show events for this agent")
	eventsCmd.Flags().String("run", "", "Only show events for this run ID")
	eventsCmd.Flags().Bool("hints", false, "Show delivered hints instead of orchestrator events")
}
