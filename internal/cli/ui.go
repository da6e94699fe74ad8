package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sadolini/openvino/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan  = lipgloss.Color("36")  // Teal - primary actions
	colorGreen = lipgloss.Color("35")  // Green - success
	colorWhite = lipgloss.Color("255") // Bright white - values
	colorGray  = lipgloss.Color("245") // Gray - secondary text
	colorDim   = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// =============================================================================
// Stats Display
// =============================================================================

// printStats prints graph statistics on a single line.
func printStats(nodeCount, edgeCount int, cached bool) {
	fmt.Println(statsLine(
		[]string{fmt.Sprintf("%d nodes", nodeCount), fmt.Sprintf("%d edges", edgeCount)},
		cached))
}

// printResult prints one line per pass followed by the graph statistics.
func printResult(r *pipeline.Result) {
	for _, rep := range r.Reports {
		if rep.Disabled {
			printDetail("%-14s disabled", rep.Pass)
			continue
		}
		line := fmt.Sprintf("%-14s %d applied", rep.Pass, rep.Applied())
		var rejected, stale int
		for _, p := range rep.Patterns {
			rejected += p.Rejected
			stale += p.Stale
		}
		if rejected > 0 {
			line += fmt.Sprintf(", %d rejected", rejected)
		}
		if stale > 0 {
			line += fmt.Sprintf(", %d stale", stale)
		}
		printDetail("%s", line)
	}
	parts := []string{
		fmt.Sprintf("%d → %d nodes", r.Stats.NodesBefore, r.Stats.NodesAfter),
		fmt.Sprintf("%d → %d edges", r.Stats.EdgesBefore, r.Stats.EdgesAfter),
	}
	if r.Removed > 0 {
		parts = append(parts, fmt.Sprintf("%d dead removed", r.Removed))
	}
	fmt.Println(statsLine(parts, r.CacheInfo.Hit))
}

// statsLine joins parts with dim separators and appends the cache status.
func statsLine(parts []string, cached bool) string {
	status := styleComputed.Render(iconFresh)
	if cached {
		status = styleCached.Render(iconCached)
	}
	rendered := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		rendered = append(rendered, StyleDim.Render(p))
	}
	rendered = append(rendered, status)
	return "  " + strings.Join(rendered, StyleDim.Render(" · "))
}
