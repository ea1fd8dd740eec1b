package spec_test

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/finopslabs/focus-mcp/internal/spec"
	"github.com/finopslabs/focus-mcp/resources"
)

func loadRegistry(t *testing.T) *spec.Registry {
	t.Helper()
	specFS, err := fs.Sub(resources.FS, "specifications")
	require.NoError(t, err)
	registry, err := spec.Load(specFS)
	require.NoError(t, err)
	return registry
}

func TestFOCUS_Spec_Columns(t *testing.T) {
	t.Parallel()
	registry := loadRegistry(t)

	t.Run("visibility grows with the version", func(t *testing.T) {
		t.Parallel()

		require.Len(t, registry.Columns("1.0"), 26)
		require.Len(t, registry.Columns("1.1"), 30)
		require.Len(t, registry.Columns("1.2"), 33)
	})

	t.Run("mandatory metric column resolves in a later version", func(t *testing.T) {
		t.Parallel()

		column, err := registry.Column("1.2", "BilledCost")
		require.NoError(t, err)
		require.Equal(t, "Billed Cost", column.DisplayName)
		require.Equal(t, "Decimal", column.DataType)
		require.Equal(t, "Metric", column.ColumnType)
		require.Equal(t, "Mandatory", column.FeatureLevel)
		require.Equal(t, "1.0", column.IntroducedVersion)
	})

	t.Run("lookup is case-insensitive and accepts display names", func(t *testing.T) {
		t.Parallel()

		byID, err := registry.Column("1.0", "billedcost")
		require.NoError(t, err)
		require.Equal(t, "BilledCost", byID.ID)

		byName, err := registry.Column("1.0", "billed cost")
		require.NoError(t, err)
		require.Equal(t, "BilledCost", byName.ID)
	})

	t.Run("column from a later version is invisible earlier", func(t *testing.T) {
		t.Parallel()

		_, err := registry.Column("1.0", "InvoiceId")
		require.ErrorIs(t, err, spec.ErrNotFound)

		column, err := registry.Column("1.2", "InvoiceId")
		require.NoError(t, err)
		require.Equal(t, "1.2", column.IntroducedVersion)
	})

	t.Run("unknown column", func(t *testing.T) {
		t.Parallel()

		_, err := registry.Column("1.2", "NoSuchColumn")
		require.ErrorIs(t, err, spec.ErrNotFound)
	})
}

func TestFOCUS_Spec_Attributes(t *testing.T) {
	t.Parallel()
	registry := loadRegistry(t)

	t.Run("visibility grows with the version", func(t *testing.T) {
		t.Parallel()

		require.Len(t, registry.Attributes("1.0"), 7)
		require.Len(t, registry.Attributes("1.2"), 8)
	})

	t.Run("currency exchange only exists from 1.2", func(t *testing.T) {
		t.Parallel()

		_, err := registry.Attribute("1.0", "currency_exchange")
		require.ErrorIs(t, err, spec.ErrNotFound)

		attribute, err := registry.Attribute("1.2", "currency_exchange")
		require.NoError(t, err)
		require.NotEmpty(t, attribute.Requirement)
	})
}

func TestFOCUS_Spec_Versions(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"1.0", "1.1", "1.2"}, loadRegistry(t).Versions())
}

func TestFOCUS_Spec_VersionOrdering(t *testing.T) {
	t.Parallel()

	// Two-part FOCUS versions must order numerically, not textually,
	// and a preview release sorts before its final cut.
	fsys := fstest.MapFS{
		"columns.yaml": &fstest.MapFile{Data: []byte(`
- column_id: A
  display_name: A
  data_type: String
  column_type: Dimension
  feature_level: Mandatory
  introduced_version: "1.2"
- column_id: B
  display_name: B
  data_type: String
  column_type: Dimension
  feature_level: Mandatory
  introduced_version: "1.10"
- column_id: C
  display_name: C
  data_type: String
  column_type: Dimension
  feature_level: Mandatory
  introduced_version: "1.2-preview"
`)},
		"attributes.yaml": &fstest.MapFile{Data: []byte("[]\n")},
	}

	registry, err := spec.Load(fsys)
	require.NoError(t, err)
	require.Equal(t, []string{"1.2-preview", "1.2", "1.10"}, registry.Versions())

	// At 1.2, the preview column is visible but 1.10 is not.
	require.Len(t, registry.Columns("1.2"), 2)
	require.Len(t, registry.Columns("1.10"), 3)
}

func TestFOCUS_Spec_LoadMissingBundle(t *testing.T) {
	t.Parallel()

	_, err := spec.Load(fstest.MapFS{"columns.yaml": &fstest.MapFile{Data: []byte("[]")}})
	require.Error(t, err)
}
