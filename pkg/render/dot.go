package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/stackload/pkg/program"
	"github.com/matzehuels/stackload/pkg/sandbox"
)

// Options configures graph rendering.
type Options struct {
	// Detailed adds the location and origin of each package to its label.
	Detailed bool
}

// ToDOT converts the packages registered in sb to Graphviz DOT. prog may
// be nil, in which case no boot package is highlighted.
func ToDOT(prog *program.Program, sb *sandbox.Sandbox, opts Options) string {
	var boot *sandbox.Package
	if prog != nil {
		boot = prog.Boot()
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	pkgs := sb.Packages()
	for _, p := range pkgs {
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(p, opts.Detailed))}
		if p == boot {
			attrs = append(attrs, "fillcolor=\"#fde68a\"", "penwidth=2")
		}
		if p.Dir() == "" {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", p.ID(), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, p := range pkgs {
		for _, d := range p.Dependencies() {
			fmt.Fprintf(&buf, "  %q -> %q;\n", p.ID(), d.ID())
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(p *sandbox.Package, detailed bool) string {
	if !detailed {
		return p.ID()
	}
	parts := []string{p.ID()}
	if dir := p.Dir(); dir != "" && dir != p.ID() {
		parts = append(parts, "location: "+dir)
	}
	if origin := p.Origin(); origin != "" {
		parts = append(parts, "origin: "+origin)
	}
	return strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG.
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

// normalizeViewBox replaces the root svg tag so the drawing scales from
// its origin.
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

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
