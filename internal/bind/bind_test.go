package bind_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finopslabs/focus-mcp/internal/bind"
	"github.com/finopslabs/focus-mcp/internal/catalog"
)

func serviceCostsDef() catalog.Definition {
	return catalog.Definition{
		Version:    "1.0",
		ID:         "analyze-costs-by-service-name",
		Title:      "Analyze costs by service name",
		SQL:        "SELECT ServiceName, SUM(EffectiveCost) FROM focus_data WHERE ServiceName = ? AND ChargePeriodStart >= ? AND ChargePeriodEnd < ? GROUP BY ServiceName",
		ParamCount: 3,
	}
}

func TestFOCUS_Bind_Arity(t *testing.T) {
	t.Parallel()

	t.Run("too few", func(t *testing.T) {
		t.Parallel()

		_, err := bind.Bind(serviceCostsDef(), []any{"Compute Engine"})
		var arity *bind.ArityError
		require.ErrorAs(t, err, &arity)
		require.Equal(t, 3, arity.Want)
		require.Equal(t, 1, arity.Got)
	})

	t.Run("too many", func(t *testing.T) {
		t.Parallel()

		_, err := bind.Bind(serviceCostsDef(), []any{"a", "b", "c", "d"})
		var arity *bind.ArityError
		require.ErrorAs(t, err, &arity)
		require.Equal(t, 4, arity.Got)
	})

	t.Run("zero parameter template takes no args", func(t *testing.T) {
		t.Parallel()

		def := catalog.Definition{ID: "totals", SQL: "SELECT COUNT(*) FROM focus_data", ParamCount: 0}
		stmt, err := bind.Bind(def, nil)
		require.NoError(t, err)
		require.Empty(t, stmt.Args)
		require.True(t, stmt.Vetted)
	})
}

func TestFOCUS_Bind_Coercion(t *testing.T) {
	t.Parallel()

	t.Run("dates become time values", func(t *testing.T) {
		t.Parallel()

		stmt, err := bind.Bind(serviceCostsDef(), []any{"Compute Engine", "2025-01-01", "2025-02-01"})
		require.NoError(t, err)
		require.Len(t, stmt.Args, 3)
		require.Equal(t, "Compute Engine", stmt.Args[0])

		start, ok := stmt.Args[1].(time.Time)
		require.True(t, ok)
		require.Equal(t, 2025, start.Year())
		require.Equal(t, time.January, start.Month())

		end, ok := stmt.Args[2].(time.Time)
		require.True(t, ok)
		require.Equal(t, time.February, end.Month())
	})

	t.Run("trailing inline comment with an apostrophe still binds", func(t *testing.T) {
		t.Parallel()

		def := catalog.Definition{
			ID:         "daily-spend-trend",
			SQL:        "SELECT ServiceName FROM focus_data WHERE ChargePeriodStart >= ? -- don't forget grouping",
			ParamCount: 1,
		}
		stmt, err := bind.Bind(def, []any{"2025-01-01"})
		require.NoError(t, err)
		require.Len(t, stmt.Args, 1)
		_, ok := stmt.Args[0].(time.Time)
		require.True(t, ok)
	})

	t.Run("unparseable date reports the position", func(t *testing.T) {
		t.Parallel()

		_, err := bind.Bind(serviceCostsDef(), []any{"Compute Engine", "not-a-date", "2025-02-01"})
		var pte *bind.ParamTypeError
		require.ErrorAs(t, err, &pte)
		require.Equal(t, 2, pte.Position)
		require.Equal(t, bind.KindTemporal, pte.Kind)
	})

	t.Run("numeric strings parse, whole floats become integers", func(t *testing.T) {
		t.Parallel()

		def := catalog.Definition{
			ID:         "expensive-rows",
			SQL:        "SELECT * FROM focus_data WHERE EffectiveCost > ? AND ConsumedQuantity >= ?",
			ParamCount: 2,
		}
		stmt, err := bind.Bind(def, []any{"12.5", float64(3)})
		require.NoError(t, err)
		require.Equal(t, float64(12.5), stmt.Args[0])
		require.Equal(t, int64(3), stmt.Args[1])
	})

	t.Run("non-numeric value for a numeric position", func(t *testing.T) {
		t.Parallel()

		def := catalog.Definition{ID: "q", SQL: "SELECT 1 FROM focus_data WHERE EffectiveCost > ?", ParamCount: 1}
		_, err := bind.Bind(def, []any{"lots"})
		var pte *bind.ParamTypeError
		require.ErrorAs(t, err, &pte)
		require.Equal(t, 1, pte.Position)
		require.Equal(t, bind.KindNumeric, pte.Kind)
	})
}

func TestFOCUS_Bind_PlaceholderKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		sql  string
		want []bind.Kind
	}{
		{
			name: "equality on a text column",
			sql:  "SELECT * FROM focus_data WHERE ProviderName = ?",
			want: []bind.Kind{bind.KindText},
		},
		{
			name: "period bounds are temporal",
			sql:  "SELECT * FROM focus_data WHERE ChargePeriodStart >= ? AND ChargePeriodEnd < ?",
			want: []bind.Kind{bind.KindTemporal, bind.KindTemporal},
		},
		{
			name: "between keeps the column for both bounds",
			sql:  "SELECT * FROM focus_data WHERE BillingPeriodStart BETWEEN ? AND ?",
			want: []bind.Kind{bind.KindTemporal, bind.KindTemporal},
		},
		{
			name: "cost and quantity columns are numeric",
			sql:  "SELECT * FROM focus_data WHERE BilledCost > ? AND ConsumedQuantity < ?",
			want: []bind.Kind{bind.KindNumeric, bind.KindNumeric},
		},
		{
			name: "literal text does not reset inference",
			sql:  "SELECT * FROM focus_data WHERE ChargeCategory = 'Usage' AND ServiceName = ?",
			want: []bind.Kind{bind.KindText},
		},
		{
			name: "inline comment with an apostrophe does not swallow markers",
			sql:  "SELECT ServiceName FROM focus_data -- don't drop the filter\nWHERE ChargePeriodStart >= ?",
			want: []bind.Kind{bind.KindTemporal},
		},
		{
			name: "marker inside a comment is not a position",
			sql:  "SELECT ServiceName FROM focus_data -- really?\nWHERE ServiceName = ?",
			want: []bind.Kind{bind.KindText},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, bind.PlaceholderKinds(tc.sql))
		})
	}
}
