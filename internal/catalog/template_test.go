package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFOCUS_Catalog_CountPlaceholders(t *testing.T) {
	t.Parallel()

	t.Run("counts markers outside literals", func(t *testing.T) {
		t.Parallel()

		count, err := CountPlaceholders("SELECT * FROM focus_data WHERE ServiceName = ? AND ChargePeriodStart >= ?")
		require.NoError(t, err)
		require.Equal(t, 2, count)
	})

	t.Run("zero markers", func(t *testing.T) {
		t.Parallel()

		count, err := CountPlaceholders("SELECT COUNT(*) FROM focus_data")
		require.NoError(t, err)
		require.Equal(t, 0, count)
	})

	t.Run("ignores escaped quotes inside literals", func(t *testing.T) {
		t.Parallel()

		count, err := CountPlaceholders("SELECT 'it''s fine' AS note, ? AS arg")
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("marker inside string literal is ambiguous", func(t *testing.T) {
		t.Parallel()

		_, err := CountPlaceholders("SELECT * FROM focus_data WHERE ChargeDescription = 'what?'")
		require.Error(t, err)
		require.Contains(t, err.Error(), "string literal")
	})

	t.Run("marker inside comment is ambiguous", func(t *testing.T) {
		t.Parallel()

		_, err := CountPlaceholders("SELECT 1 -- really?\nFROM focus_data")
		require.Error(t, err)
		require.Contains(t, err.Error(), "comment")
	})

	t.Run("unterminated literal", func(t *testing.T) {
		t.Parallel()

		_, err := CountPlaceholders("SELECT 'oops FROM focus_data")
		require.Error(t, err)
	})
}

func TestFOCUS_Catalog_Slugify(t *testing.T) {
	t.Parallel()

	require.Equal(t, "analyze-costs-by-service-name", Slugify("Analyze costs by service name"))
	require.Equal(t, "sku-meter-costs", Slugify("SKU meter costs"))
	require.Equal(t, "monthly-costs-by-provider", Slugify("  Monthly costs, by provider!  "))
	// Repeated loads map the same title to the same id.
	require.Equal(t, Slugify("Daily spend trend"), Slugify("Daily spend trend"))
}

func TestFOCUS_Catalog_ParseTemplate(t *testing.T) {
	t.Parallel()

	t.Run("extracts title citation and sql", func(t *testing.T) {
		t.Parallel()

		content := []byte("-- Daily spend trend\n-- Source: https://focus.finops.org/use-cases/x/\nSELECT 1 FROM focus_data WHERE ChargePeriodStart >= ?\n")
		def, err := parseTemplate("1.0", "daily_spend_trend.sql", content)
		require.NoError(t, err)
		require.Equal(t, "1.0", def.Version)
		require.Equal(t, "daily-spend-trend", def.ID)
		require.Equal(t, "Daily spend trend", def.Title)
		require.Equal(t, "https://focus.finops.org/use-cases/x/", def.Citation)
		require.Equal(t, 1, def.ParamCount)
		require.NotContains(t, def.SQL, "--")
	})

	t.Run("falls back to file stem without header", func(t *testing.T) {
		t.Parallel()

		def, err := parseTemplate("1.0", "no_header.sql", []byte("SELECT 1"))
		require.NoError(t, err)
		require.Equal(t, "no-header", def.ID)
	})

	t.Run("comment-only file is malformed", func(t *testing.T) {
		t.Parallel()

		_, err := parseTemplate("1.0", "only_comments.sql", []byte("-- Title\n-- nothing else\n"))
		var malformed *MalformedTemplateError
		require.ErrorAs(t, err, &malformed)
		require.Equal(t, "no SQL body", malformed.Reason)
	})
}
