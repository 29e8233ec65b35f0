// Command louvain-tui browses the levels of a clustering run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
	"github.com/dd0wney/cluso-louvain/pkg/edgelist"
	"github.com/dd0wney/cluso-louvain/pkg/snapshot"
)

func main() {
	snapPath := flag.String("snapshot", "", "Snapshot file to browse")
	format := flag.String("format", "edgelist", "Input format when clustering a file: edgelist or ncol")
	workers := flag.Int("workers", 1, "Workers when clustering a file")
	flag.Parse()

	snap, err := load(*snapPath, flag.Arg(0), *format, *workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "louvain-tui: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(newModel(snap), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "louvain-tui: %v\n", err)
		os.Exit(1)
	}
}

// load reads a snapshot, or clusters an input file into a fresh one.
func load(snapPath, input, format string, workers int) (*snapshot.Snapshot, error) {
	if snapPath != "" {
		return snapshot.ReadFile(snapPath)
	}
	if input == "" {
		return nil, fmt.Errorf("give -snapshot or an input file")
	}

	f, err := edgelist.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	parsed, err := edgelist.ReadFile(input, f)
	if err != nil {
		return nil, err
	}
	g, err := parsed.Graph()
	if err != nil {
		return nil, err
	}

	opts := algorithms.DefaultLouvainOptions()
	opts.Workers = workers
	result, err := algorithms.ClusterContext(context.Background(), g, opts)
	if err != nil {
		return nil, fmt.Errorf("clustering failed: %w", err)
	}
	return snapshot.New(g, opts, result, parsed.Names), nil
}
