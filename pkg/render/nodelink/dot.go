package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/pkgscope/pkg/deps"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds size and depth lines to node labels.
	// When false, only name@version is shown.
	Detailed bool
}

// ToDOT converts a resolved graph to Graphviz DOT source.
// Nodes appear in resolution order and edges follow each package's path.
func ToDOT(g *deps.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, p := range g.Packages {
		attrs := fmtAttrs(p, fmtLabel(p, opts.Detailed))
		fmt.Fprintf(&buf, "  %q [%s];\n", p.ID(), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, p := range g.Packages {
		if n := len(p.Path); n >= 2 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", p.Path[n-2], p.Path[n-1])
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(p *deps.ResolvedPackage, detailed bool) string {
	if !detailed {
		return p.ID()
	}
	return p.ID() + "\n" + formatBytes(p.Size) + "\n" + p.Depth.String()
}

func fmtAttrs(p *deps.ResolvedPackage, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	style := "rounded,filled"
	if p.Optional {
		style += ",dashed"
	}
	if style != "rounded,filled" {
		attrs = append(attrs, fmt.Sprintf("style=%q", style))
	}
	if p.Deprecated != "" {
		attrs = append(attrs, "fillcolor=mistyrose")
	}
	return attrs
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element to a zero-origin viewBox with
// matching width and height so the SVG scales cleanly when embedded.
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

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
