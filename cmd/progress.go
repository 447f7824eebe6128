package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/scaffold/internal/store"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show agent progress from the latest snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("curriculum")

		s, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		snap, err := s.SnapshotRepo().Latest(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		printProgress(cmd.OutOrStdout(), snap)
		return nil
	},
}

func printProgress(w io.Writer, snap *store.Snapshot) {
	if snap == nil {
		fmt.Fprintln(w, "No snapshots found.")
		return
	}

	fmt.Fprintf(w, "Curriculum: %s\n", snap.Curriculum)
	fmt.Fprintf(w, "Run:        %s\n", snap.RunID)
	fmt.Fprintf(w, "Tick:       %d\n", snap.Tick)
	fmt.Fprintf(w, "Saved:      %s\n", snap.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-20s  %-15s  %-5s  %-16s  %s\n", "Agent", "Status", "Step", "Completed", "Attempts")
	fmt.Fprintln(w, strings.Repeat("─", 72))

	for _, id := range snapshotOrder(snap.Data) {
		a := snap.Data.Agents[id]
		step := "-"
		if a.CurrentStepOrder > 0 {
			step = fmt.Sprintf("%d", a.CurrentStepOrder)
		}
		fmt.Fprintf(w, "%-20s  %-15s  %-5s  %-16s  %s\n",
			truncate(id, 20), a.Status, step, formatOrders(a.Completed), formatAttempts(a.Attempts))
	}
}

// snapshotOrder returns agents in registration order, then any stragglers
// sorted by ID.
func snapshotOrder(d store.SnapshotData) []string {
	ids := make([]string, 0, len(d.Agents))
	seen := make(map[string]bool, len(d.Order))
	for _, id := range d.Order {
		if _, ok := d.Agents[id]; ok && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	var rest []string
	for id := range d.Agents {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(ids, rest...)
}

func formatOrders(orders []int) string {
	if len(orders) == 0 {
		return "-"
	}
	parts := make([]string, len(orders))
	for i, o := range orders {
		parts[i] = fmt.Sprintf("%d", o)
	}
	return strings.Join(parts, ",")
}

func formatAttempts(attempts map[int]int) string {
	if len(attempts) == 0 {
		return "-"
	}
	orders := make([]int, 0, len(attempts))
	for o := range attempts {
		orders = append(orders, o)
	}
	slices.Sort(orders)
	parts := make([]string, len(orders))
	for i, o := range orders {
		parts[i] = fmt.Sprintf("%d:%d", o, attempts[o])
	}
	return strings.Join(parts, " ")
}

func init() {
	progressCmd.Flags().StringP("curriculum", "c", "", "Only consider snapshots of this curriculum")
}
