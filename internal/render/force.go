package render

import (
	"bytes"
	"math"

	"golang.org/x/exp/rand"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/dkovalev/schemalens/internal/errs"
	"github.com/dkovalev/schemalens/internal/schema"
)

// ForceGraph renders the relationship graph: one circle per table sized by
// its column count, one directed arrow per table pair with a foreign key.
// Node positions come from a spring layout seeded with a fixed seed, so
// rendering the same model twice yields identical coordinates.
//
// Known limitation: the underlying simple directed graph cannot hold
// parallel edges, so multiple foreign keys between the same table pair
// collapse into one drawn edge, and only the last-computed label for that
// pair appears.
type ForceGraph struct {
	Width, Height int
	Seed          uint64
	NodeScale     float64 // radius units added per column
	Iterations    int     // spring layout update rounds
}

// NewForceGraph returns the force-directed renderer with default canvas
// size and seed.
func NewForceGraph() *ForceGraph {
	return &ForceGraph{
		Width:      1600,
		Height:     1120,
		Seed:       42,
		NodeScale:  6,
		Iterations: 50,
	}
}

// edgePair is one drawn edge between two distinct node-pair endpoints.
type edgePair struct {
	from, to string
}

// Render lays out and draws the graph, returning an encoded PNG.
func (f *ForceGraph) Render(m *schema.Model) (*Artifact, error) {
	// Node order is fixed: extracted tables first, then unresolved FK
	// endpoints in edge order. The order determines gonum node IDs and with
	// them the layout, so it must be deterministic.
	order := make([]string, 0, len(m.Tables))
	ids := make(map[string]int64, len(m.Tables))
	addNode := func(name string) {
		if _, ok := ids[name]; !ok {
			ids[name] = int64(len(order))
			order = append(order, name)
		}
	}
	for _, t := range m.Tables {
		addNode(t)
	}
	for _, fk := range m.ForeignKeys {
		addNode(fk.FromTable)
		addNode(fk.ToTable)
	}

	// Collapse parallel edges to one per distinct pair; last label wins.
	var pairs []edgePair
	labels := make(map[edgePair]string)
	for _, fk := range m.ForeignKeys {
		p := edgePair{from: fk.FromTable, to: fk.ToTable}
		if _, ok := labels[p]; !ok {
			pairs = append(pairs, p)
		}
		labels[p] = fk.FromColumn + " → " + fk.ToColumn
	}

	positions := f.computeLayout(order, ids, pairs)

	png, err := f.draw(m, order, pairs, labels, positions)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Format:      FormatPNG,
		ContentType: "image/png",
		Data:        png,
		NodeCount:   len(order),
		EdgeCount:   len(pairs),
		Positions:   positions,
	}, nil
}

// computeLayout runs the Eades spring layout and maps the resulting
// coordinates onto the canvas.
func (f *ForceGraph) computeLayout(order []string, ids map[string]int64, pairs []edgePair) map[string]Position {
	positions := make(map[string]Position, len(order))
	if len(order) == 0 {
		return positions
	}

	g := simple.NewDirectedGraph()
	for _, name := range order {
		g.AddNode(simple.Node(ids[name]))
	}
	for _, p := range pairs {
		// Self-references cannot enter the layout graph; the node is
		// positioned by repulsion alone and the loop is drawn separately.
		if p.from == p.to {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(ids[p.from]), T: simple.Node(ids[p.to])})
	}

	eades := layout.EadesR2{
		Repulsion: 1,
		Rate:      0.05,
		Updates:   f.Iterations,
		Theta:     0.2,
		Src:       rand.NewSource(f.Seed),
	}
	opt := layout.NewOptimizerR2(g, eades.Update)
	for opt.Update() {
	}

	// Normalize layout coordinates into the canvas, keeping a margin for
	// node circles and labels.
	const margin = 100.0
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, name := range order {
		v := opt.Coord2(ids[name])
		minX, maxX = math.Min(minX, v.X), math.Max(maxX, v.X)
		minY, maxY = math.Min(minY, v.Y), math.Max(maxY, v.Y)
	}

	scale := func(v, lo, hi, size float64) float64 {
		if hi-lo < 1e-9 {
			return size / 2
		}
		return margin + (v-lo)/(hi-lo)*(size-2*margin)
	}
	for _, name := range order {
		v := opt.Coord2(ids[name])
		positions[name] = Position{
			X: scale(v.X, minX, maxX, float64(f.Width)),
			Y: scale(v.Y, minY, maxY, float64(f.Height)),
		}
	}
	return positions
}

// radius returns the node circle radius for a table with the given column
// count. Size is proportional to column count so large tables read as large.
func (f *ForceGraph) radius(columns int) float64 {
	return 16 + f.NodeScale*float64(columns)
}

func (f *ForceGraph) draw(m *schema.Model, order []string, pairs []edgePair, labels map[edgePair]string, positions map[string]Position) ([]byte, error) {
	dc := gg.NewContext(f.Width, f.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	// Edges under nodes.
	for _, p := range pairs {
		f.drawEdge(dc, m, p, labels[p], positions)
	}

	// Nodes.
	for _, name := range order {
		pos := positions[name]
		r := f.radius(m.ColumnCount(name))

		dc.SetRGBA(0.68, 0.85, 0.90, 0.9) // lightblue
		dc.DrawCircle(pos.X, pos.Y, r)
		dc.Fill()
		dc.SetRGB(0.27, 0.51, 0.71)
		dc.SetLineWidth(1.5)
		dc.DrawCircle(pos.X, pos.Y, r)
		dc.Stroke()

		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(name, pos.X, pos.Y-r-8, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errs.Wrap(errs.ErrKindRenderFailed, "png encode failed", err)
	}
	return buf.Bytes(), nil
}

func (f *ForceGraph) drawEdge(dc *gg.Context, m *schema.Model, p edgePair, label string, positions map[string]Position) {
	from, to := positions[p.from], positions[p.to]

	if p.from == p.to {
		// Self-reference: a small loop on the node's right side.
		r := f.radius(m.ColumnCount(p.from))
		dc.SetRGB(0.5, 0.5, 0.5)
		dc.SetLineWidth(2)
		dc.DrawCircle(from.X+r+12, from.Y, 12)
		dc.Stroke()
		f.drawEdgeLabel(dc, label, from.X+r+12, from.Y-20)
		return
	}

	dx, dy := to.X-from.X, to.Y-from.Y
	dist := math.Hypot(dx, dy)
	if dist < 1e-9 {
		return
	}
	ux, uy := dx/dist, dy/dist

	rFrom := f.radius(m.ColumnCount(p.from))
	rTo := f.radius(m.ColumnCount(p.to))
	sx, sy := from.X+ux*rFrom, from.Y+uy*rFrom
	ex, ey := to.X-ux*rTo, to.Y-uy*rTo

	dc.SetRGB(0.5, 0.5, 0.5)
	dc.SetLineWidth(2)
	dc.DrawLine(sx, sy, ex, ey)
	dc.Stroke()

	// Arrowhead at the referenced table.
	const ah = 12.0
	px, py := -uy, ux
	dc.MoveTo(ex, ey)
	dc.LineTo(ex-ux*ah+px*ah/2, ey-uy*ah+py*ah/2)
	dc.LineTo(ex-ux*ah-px*ah/2, ey-uy*ah-py*ah/2)
	dc.ClosePath()
	dc.Fill()

	f.drawEdgeLabel(dc, label, (sx+ex)/2, (sy+ey)/2)
}

func (f *ForceGraph) drawEdgeLabel(dc *gg.Context, label string, x, y float64) {
	if label == "" {
		return
	}
	w, h := dc.MeasureString(label)

	dc.SetRGBA(1, 1, 0.6, 0.7)
	dc.DrawRoundedRectangle(x-w/2-4, y-h/2-3, w+8, h+6, 4)
	dc.Fill()

	dc.SetRGB(0, 0, 0.8)
	dc.DrawStringAnchored(label, x, y, 0.5, 0.35)
}
