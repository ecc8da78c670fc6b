package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSQL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"SELECT count() FROM swaps", "SELECT count() FROM swaps"},
		{"SELECT count() FROM swaps;", "SELECT count() FROM swaps"},
		{"```sql\nSELECT count() FROM swaps\n```", "SELECT count() FROM swaps"},
		{"```\nSELECT 1 FROM swaps\n```", "SELECT 1 FROM swaps"},
		{"  SELECT 1 FROM swaps  ", "SELECT 1 FROM swaps"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, sanitizeSQL(tc.in), "input %q", tc.in)
	}
}

func TestValidateSQL(t *testing.T) {
	assert.NoError(t, validateSQL("SELECT sum(amount_in) FROM swaps WHERE token_in = 'MTK'"))
	assert.NoError(t, validateSQL("SELECT count() FROM dex.swaps"))

	assert.Error(t, validateSQL(""))
	assert.Error(t, validateSQL("DROP TABLE swaps"))
	assert.Error(t, validateSQL("SELECT 1 FROM swaps; DROP TABLE swaps"))
	assert.Error(t, validateSQL("SELECT * FROM system.tables"))
	assert.Error(t, validateSQL("INSERT INTO swaps VALUES (1)"))
	assert.Error(t, validateSQL("SELECT 1 FROM swaps UNION ALL SELECT 1 FROM swaps WHERE 1=1 AND (SELECT 1) = 1 /* CREATE */ CREATE TABLE x"))
}
