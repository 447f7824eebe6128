package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abhisek/scaffold/internal/curriculum"
)

var validateCmd = &cobra.Command{
	Use:   "validate <curriculum>",
	Short: "Check a curriculum file and report warnings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		emit, _ := cmd.Flags().GetString("emit")
		watch, _ := cmd.Flags().GetBool("watch")
		switch curriculum.Format(emit) {
		case "", curriculum.FormatJSON, curriculum.FormatYAML:
		default:
			return fmt.Errorf("--emit must be json or yaml, got %q", emit)
		}

		out := cmd.OutOrStdout()
		if !watch {
			return validateFile(out, args[0], curriculum.Format(emit))
		}
		return watchFile(cmd.Context(), out, args[0], curriculum.Format(emit))
	},
}

// validateFile loads path and prints a one-line report and its warnings,
// followed by the normalized document when emit is set.
func validateFile(w io.Writer, path string, emit curriculum.Format) error {
	c, warnings, err := curriculum.LoadFile(path)
	if err != nil {
		return err
	}

	if emit != "" {
		data, err := curriculum.Marshal(c, emit)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	fmt.Fprintf(w, "%s: ok (%s, %d steps", path, c.Name(), c.Len())
	if v := c.Version(); v != "" {
		fmt.Fprintf(w, ", version %s", v)
	}
	fmt.Fprintln(w, ")")
	for _, warn := range warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	return nil
}

// watchFile validates path, then again after every change until ctx ends.
// Load errors are printed rather than returned so the watch keeps going.
func watchFile(ctx context.Context, w io.Writer, path string, emit curriculum.Format) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	report := func() {
		if err := validateFile(w, path, emit); err != nil {
			fmt.Fprintln(w, err)
		}
	}
	report()

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				report()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(w, "watch error:", err)
		}
	}
}

func init() {
	validateCmd.Flags().String("emit", "", "Print the normalized curriculum as json or yaml")
	validateCmd.Flags().BoolP("watch", "w", false, "Re-validate whenever the file changes")
}
