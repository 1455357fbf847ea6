package render

import (
	"html"
	"strings"

	"github.com/emicklei/dot"

	"github.com/dkovalev/schemalens/internal/schema"
)

// ERD renders the hierarchical entity diagram: one bordered table block per
// table, one labeled directed edge per foreign key, laid out left-to-right by
// the Graphviz rank engine.
type ERD struct{}

// NewERD returns the hierarchical diagram renderer.
func NewERD() *ERD {
	return &ERD{}
}

// Render emits Graphviz DOT. Edge direction encodes "references": the edge
// points from the FK's owning table to the referenced table. Parallel edges
// between the same table pair are all kept and individually labeled.
func (e *ERD) Render(m *schema.Model) (*Artifact, error) {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "LR")

	nodes := make(map[string]dot.Node, len(m.Tables))
	for _, table := range m.Tables {
		n := g.Node(table)
		n.Attr("shape", "plaintext")
		n.Attr("label", dot.HTML(tableLabel(m, table)))
		nodes[table] = n
	}

	edgeCount := 0
	for _, fk := range m.ForeignKeys {
		from := ensureNode(g, nodes, fk.FromTable)
		to := ensureNode(g, nodes, fk.ToTable)

		edge := g.Edge(from, to)
		edge.Attr("label", fk.FromColumn+" → "+fk.ToColumn)
		edge.Attr("color", "blue")
		edge.Attr("fontsize", "10")
		edgeCount++
	}

	return &Artifact{
		Format:      FormatDOT,
		ContentType: "text/vnd.graphviz",
		Data:        []byte(g.String()),
		NodeCount:   len(nodes),
		EdgeCount:   edgeCount,
	}, nil
}

// ensureNode returns the node for a qualified table name, creating a bare
// node for FK endpoints that lie outside the extracted schema set. Such
// nodes carry no column detail but must not break rendering.
func ensureNode(g *dot.Graph, nodes map[string]dot.Node, table string) dot.Node {
	if n, ok := nodes[table]; ok {
		return n
	}
	n := g.Node(table)
	nodes[table] = n
	return n
}

// tableLabel builds the HTML-like block for one table: a header row with the
// table name, then one row per column in catalog order. Primary-key columns
// get a key glyph and a lightgreen background.
func tableLabel(m *schema.Model, table string) string {
	var b strings.Builder
	b.WriteString(`<TABLE BORDER="1" CELLBORDER="1" CELLSPACING="0">`)
	b.WriteString(`<TR><TD COLSPAN="2" BGCOLOR="lightblue"><B>`)
	b.WriteString(html.EscapeString(table))
	b.WriteString(`</B></TD></TR>`)

	for _, col := range m.Columns[table] {
		name := html.EscapeString(col.Name)
		bgcolor := "white"
		if m.IsPrimaryKey(table, col.Name) {
			name = "🔑 " + name
			bgcolor = "lightgreen"
		}
		b.WriteString(`<TR><TD BGCOLOR="` + bgcolor + `">`)
		b.WriteString(name)
		b.WriteString(`</TD><TD>`)
		b.WriteString(html.EscapeString(col.DataType))
		b.WriteString(`</TD></TR>`)
	}

	b.WriteString(`</TABLE>`)
	return b.String()
}
