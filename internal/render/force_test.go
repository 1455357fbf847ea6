package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkovalev/schemalens/internal/schema"
)

func TestForceGraphTwoTables(t *testing.T) {
	art, err := NewForceGraph().Render(twoTableModel())
	require.NoError(t, err)

	assert.Equal(t, FormatPNG, art.Format)
	assert.Equal(t, "image/png", art.ContentType)
	assert.Equal(t, 2, art.NodeCount)
	assert.Equal(t, 1, art.EdgeCount)
	assert.Len(t, art.Positions, 2)

	img, err := png.Decode(bytes.NewReader(art.Data))
	require.NoError(t, err)
	bounds := img.Bounds()
	assert.Equal(t, 1600, bounds.Dx())
	assert.Equal(t, 1120, bounds.Dy())
}

func TestForceGraphDeterministicLayout(t *testing.T) {
	r := NewForceGraph()

	first, err := r.Render(twoTableModel())
	require.NoError(t, err)
	second, err := r.Render(twoTableModel())
	require.NoError(t, err)

	assert.Equal(t, first.Positions, second.Positions,
		"same model and seed must yield identical coordinates")
}

func TestForceGraphZeroForeignKeys(t *testing.T) {
	m := twoTableModel()
	m.ForeignKeys = nil

	art, err := NewForceGraph().Render(m)
	require.NoError(t, err)

	assert.Equal(t, len(m.Tables), art.NodeCount)
	assert.Zero(t, art.EdgeCount)
}

func TestForceGraphParallelEdgesCollapse(t *testing.T) {
	m := twoTableModel()
	m.ForeignKeys = append(m.ForeignKeys, schema.ForeignKeyEdge{
		FromTable: "public.orders", FromColumn: "billing_customer_id",
		ToTable: "public.customers", ToColumn: "id",
	})

	art, err := NewForceGraph().Render(m)
	require.NoError(t, err)

	// One drawn edge per distinct pair; the duplicate collapses.
	assert.Equal(t, 1, art.EdgeCount)
}

func TestForceGraphUnresolvedReference(t *testing.T) {
	m := twoTableModel()
	m.ForeignKeys = append(m.ForeignKeys, schema.ForeignKeyEdge{
		FromTable: "public.orders", FromColumn: "tenant_id",
		ToTable: "shared.tenants", ToColumn: "id",
	})

	art, err := NewForceGraph().Render(m)
	require.NoError(t, err)

	assert.Equal(t, 3, art.NodeCount)
	assert.Contains(t, art.Positions, "shared.tenants")
}

func TestForceGraphSelfReference(t *testing.T) {
	m := &schema.Model{
		Tables: []string{"public.employees"},
		Columns: map[string][]schema.ColumnInfo{
			"public.employees": {
				{Name: "id", DataType: "integer", Position: 1},
				{Name: "manager_id", DataType: "integer", Nullable: true, Position: 2},
			},
		},
		PrimaryKeys: map[string]map[string]bool{"public.employees": {"id": true}},
		ForeignKeys: []schema.ForeignKeyEdge{
			{FromTable: "public.employees", FromColumn: "manager_id", ToTable: "public.employees", ToColumn: "id"},
		},
		Indexes: map[string][]schema.IndexInfo{},
	}

	art, err := NewForceGraph().Render(m)
	require.NoError(t, err)
	assert.Equal(t, 1, art.NodeCount)
	assert.Equal(t, 1, art.EdgeCount)
}

func TestForceGraphEmptyModel(t *testing.T) {
	m := &schema.Model{
		Columns:     map[string][]schema.ColumnInfo{},
		PrimaryKeys: map[string]map[string]bool{},
		Indexes:     map[string][]schema.IndexInfo{},
	}

	art, err := NewForceGraph().Render(m)
	require.NoError(t, err)
	assert.Zero(t, art.NodeCount)
	assert.Zero(t, art.EdgeCount)
}

func TestForceGraphNodeSizeProportionalToColumns(t *testing.T) {
	r := NewForceGraph()

	small := r.radius(2)
	large := r.radius(10)
	assert.InDelta(t, 8*r.NodeScale, large-small, 1e-9,
		"radius grows linearly with column count")
}
