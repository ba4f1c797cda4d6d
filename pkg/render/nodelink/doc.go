// Package nodelink renders resolved dependency graphs as node-link diagrams.
//
// # Overview
//
// Each resolved package becomes a box labelled name@version, connected to
// the package that first pulled it in. Because resolution keeps one entry
// per name, the diagram is the breadth-first resolution tree, not every
// declared edge.
//
// # Usage
//
// Convert a graph to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Edges are taken from each package's path, so the graph must have been
// resolved with deps.Options.TrackDepth set. Without paths only the nodes
// are drawn.
//
// # Styling
//
// Optional packages have dashed outlines and deprecated packages a light
// red fill. With Detailed set, labels also carry the unpacked size and the
// depth class.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
