package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/graph"
)

// Options configures DOT output.
type Options struct {
	// ShowAttrs adds one "key: value" line per attribute to node labels.
	ShowAttrs bool
	// ShowIDs prefixes labels with the node ID.
	ShowIDs bool
	// HideConsts leaves out Const ops and the values they produce.
	HideConsts bool
	// RankDir is the Graphviz layout direction; "TB" when empty.
	RankDir string
}

// maxValueLen truncates long attribute values in labels.
const maxValueLen = 40

// ToDOT converts g to Graphviz DOT source.
func ToDOT(g *graph.Graph, opts Options) string {
	rankdir := opts.RankDir
	if rankdir == "" {
		rankdir = "TB"
	}
	hidden := hiddenNodes(g, opts)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=9];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		if hidden[n.ID] {
			continue
		}
		fmt.Fprintf(&buf, "  n%d [%s];\n", n.ID, strings.Join(fmtAttrs(n, fmtLabel(n, opts)), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if hidden[e.From] || hidden[e.To] {
			continue
		}
		if label := edgeLabel(g, e); label != "" {
			fmt.Fprintf(&buf, "  n%d -> n%d [label=%q];\n", e.From, e.To, label)
		} else {
			fmt.Fprintf(&buf, "  n%d -> n%d;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func hiddenNodes(g *graph.Graph, opts Options) map[graph.ID]bool {
	hidden := make(map[graph.ID]bool)
	if !opts.HideConsts {
		return hidden
	}
	isOp := func(n *graph.Node) bool { return n.Kind == graph.KindOp }
	for _, n := range g.NodesByOp("Const") {
		hidden[n.ID] = true
		// Everything reachable without entering an op is the constant's
		// own data node.
		for _, id := range g.Descendants([]graph.ID{n.ID}, isOp) {
			hidden[id] = true
		}
	}
	return hidden
}

func fmtLabel(n *graph.Node, opts Options) string {
	var lines []string
	head := n.Name
	if head == "" {
		head = fmt.Sprintf("#%d", n.ID)
	} else if opts.ShowIDs {
		head = fmt.Sprintf("#%d %s", n.ID, head)
	}
	lines = append(lines, head)

	switch n.Kind {
	case graph.KindOp:
		lines = append(lines, n.Op)
	case graph.KindData:
		if shape, err := n.Attrs.Ints("shape"); err == nil && !opts.ShowAttrs {
			lines = append(lines, fmt.Sprint(shape))
		}
	}
	if opts.ShowAttrs {
		for _, k := range n.Attrs.Keys() {
			lines = append(lines, fmt.Sprintf("%s: %s", k, fmtValue(n.Attrs[k])))
		}
	}
	return strings.Join(lines, "\n")
}

func fmtValue(v any) string {
	s := fmt.Sprint(v)
	if len(s) > maxValueLen {
		s = s[:maxValueLen-3] + "..."
	}
	return s
}

func fmtAttrs(n *graph.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.Kind == graph.KindData:
		attrs = append(attrs, "shape=ellipse", "style=filled", "fillcolor=\"#f1f5f9\"", "fontsize=10")
	case n.IsOp("Select") && n.Attrs.Flag("context_gate"):
		attrs = append(attrs, "fillcolor=\"#fde68a\"")
	case n.Attrs.Flag("counter"):
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=\"#e0f2fe\"")
	case n.IsOp("Const"):
		attrs = append(attrs, "fillcolor=lightgrey")
	case n.IsOp("Parameter", "Result"):
		attrs = append(attrs, "shape=box", "style=\"filled\"", "fillcolor=\"#dcfce7\"")
	}
	return attrs
}

// edgeLabel names the ports an edge connects. In a data-form graph only
// the op side has a port worth showing.
func edgeLabel(g *graph.Graph, e graph.Edge) string {
	if g.Form() == graph.FormOps {
		return fmt.Sprintf("%d→%d", e.Out, e.In)
	}
	if from, _ := g.Node(e.From); from.Kind == graph.KindOp {
		if e.Out == 0 {
			return ""
		}
		return fmt.Sprintf("out%d", e.Out)
	}
	if e.In == 0 {
		return ""
	}
	return fmt.Sprintf("in%d", e.In)
}

// Format is a rendered output format.
type Format string

// Supported formats.
const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, src string) ([]byte, error) {
	out, err := Render(ctx, src, FormatSVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// Render renders DOT source in the given format using Graphviz.
func Render(ctx context.Context, src string, format Format) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatSVG:
		gvFormat = graphviz.SVG
	case FormatPNG:
		gvFormat = graphviz.PNG
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown render format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(src))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one
// that scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
