// Package report renders clustering results as text, styled summaries and JSON.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	bestStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF00"))

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))
)

// NameFunc returns the display name of a node id.
type NameFunc func(node int) string

// Meta is run metadata carried into JSON output.
type Meta struct {
	RunID       string        `json:"run_id,omitempty"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	Input       string        `json:"input,omitempty"`
	Nodes       int           `json:"nodes"`
	Edges       int           `json:"edges"`
	Duration    time.Duration `json:"duration_ns"`
}

// WriteLevels writes one "Cluster <level>:" block per recorded level
// followed by its membership, and a trailing blank line.
func WriteLevels(w io.Writer, result *algorithms.LouvainResult) error {
	bw := bufio.NewWriter(w)
	for i, level := range result.Levels {
		fmt.Fprintf(bw, "Cluster %d:\n", i)
		for _, c := range level.Membership {
			bw.WriteString(strconv.Itoa(c))
			bw.WriteByte(' ')
		}
		bw.WriteByte('\n')
	}
	bw.WriteByte('\n')
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write levels: %w", err)
	}
	return nil
}

// WriteClusters writes the best level's communities, one per line, as
// "<community>: <member> <member> ...". A nil name maps ids to their decimal form.
func WriteClusters(w io.Writer, result *algorithms.LouvainResult, name NameFunc) error {
	if name == nil {
		name = strconv.Itoa
	}

	clusters := make([][]int, 0)
	for node, c := range result.BestMembership {
		for c >= len(clusters) {
			clusters = append(clusters, nil)
		}
		clusters[c] = append(clusters[c], node)
	}

	bw := bufio.NewWriter(w)
	for c, members := range clusters {
		names := make([]string, len(members))
		for i, node := range members {
			names[i] = name(node)
		}
		fmt.Fprintf(bw, "%d: %s\n", c, strings.Join(names, " "))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write clusters: %w", err)
	}
	return nil
}

// WriteSummary writes a styled table of the recorded levels with the best
// level highlighted.
func WriteSummary(w io.Writer, result *algorithms.LouvainResult) error {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-6s %-12s %-8s %-8s %-8s %-8s",
		"LEVEL", "MODULARITY", "NODES", "K", "PASSES", "MOVES")))
	b.WriteByte('\n')

	for _, level := range result.Levels {
		row := fmt.Sprintf("%-6d %-12.6f %-8d %-8d %-8d %-8d",
			level.Level, level.Modularity, level.NodeCount, level.CommunityCount, level.Passes, level.Moves)
		if level.Level == result.BestLevel {
			b.WriteString(bestStyle.Render(row + "  *"))
		} else {
			b.WriteString(rowStyle.Render(row))
		}
		b.WriteByte('\n')
	}

	for _, warning := range VerifyBest(result) {
		b.WriteString(warnStyle.Render("WARNING: " + warning))
		b.WriteByte('\n')
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

type jsonReport struct {
	Meta   Meta                      `json:"meta"`
	Result *algorithms.LouvainResult `json:"result"`
}

// WriteJSON writes the result and its metadata as indented JSON.
func WriteJSON(w io.Writer, result *algorithms.LouvainResult, meta Meta) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{Meta: meta, Result: result}); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

// VerifyBest checks the best membership against the recorded best level
// and returns one message per mismatching element.
func VerifyBest(result *algorithms.LouvainResult) []string {
	if result.BestLevel < 0 || result.BestLevel >= len(result.Levels) {
		return []string{fmt.Sprintf("best level %d is not a recorded level", result.BestLevel)}
	}

	recorded := result.Levels[result.BestLevel].Membership
	if len(recorded) != len(result.BestMembership) {
		return []string{fmt.Sprintf("best membership has %d elements, level %d has %d",
			len(result.BestMembership), result.BestLevel, len(recorded))}
	}

	var warnings []string
	for i, c := range result.BestMembership {
		if recorded[i] != c {
			warnings = append(warnings, fmt.Sprintf(
				"best membership vector element %d does not match the best one in the membership matrix", i))
		}
	}
	return warnings
}
