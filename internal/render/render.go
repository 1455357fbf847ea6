// Package render turns a schema.Model into displayable artifacts. The two
// renderers are independent pure transformations over the same input: a
// hierarchical Graphviz ER diagram and a force-directed relationship graph.
// Neither performs I/O and neither mutates the model.
package render

import "github.com/dkovalev/schemalens/internal/schema"

// Format identifies the artifact encoding.
type Format string

const (
	FormatDOT Format = "dot" // Graphviz DOT source
	FormatPNG Format = "png" // rendered raster figure
)

// Position is a node coordinate on the rendered canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Artifact is the output of one render call.
type Artifact struct {
	Format      Format
	ContentType string
	Data        []byte

	NodeCount int
	EdgeCount int

	// Positions holds the final node coordinates, keyed by qualified table
	// name. Only the force-directed renderer fills it.
	Positions map[string]Position
}

// Renderer converts a schema model into a displayable artifact. A render
// failure never invalidates the model — the caller may retry or switch
// renderers with the same input.
type Renderer interface {
	Render(m *schema.Model) (*Artifact, error)
}
