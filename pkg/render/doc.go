// Package render draws the package graph of an assembled program.
//
// [ToDOT] emits Graphviz DOT with one box per registered package and one
// arrow per resolved mapping. The boot package is highlighted. [RenderSVG]
// lays the DOT out in-process with go-graphviz, so no Graphviz install is
// needed:
//
//	dot := render.ToDOT(prog, sb, render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
package render
