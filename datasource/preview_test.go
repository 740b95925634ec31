package datasource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	var b strings.Builder
	b.WriteString("\xef\xbb\xbfspecies,island,bill_length_mm\n")
	for i := 0; i < 8; i++ {
		b.WriteString("Adelie,Torgersen,39.1\n")
	}

	p, err := Preview([]byte(b.String()))
	require.NoError(t, err)
	assert.Equal(t, []string{"species", "island", "bill_length_mm"}, p.Columns)
	assert.Len(t, p.Rows, DefaultPreviewRows)
	assert.Equal(t, 8, p.RowCount)
	assert.Equal(t, "8 rows x 3 columns (species, island, bill_length_mm)", p.Summary())
}

func TestPreview_RaggedRows(t *testing.T) {
	p, err := Preview([]byte("a,b\n1\n2,3,4\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, p.RowCount)
	assert.Equal(t, []string{"1"}, p.Rows[0])
}

func TestPreview_Errors(t *testing.T) {
	_, err := Preview(nil)
	assert.Error(t, err)

	_, err = Preview([]byte("a,b\n\"unterminated\n"))
	assert.Error(t, err)
}

func TestIsCSV(t *testing.T) {
	assert.True(t, IsCSV("data.csv"))
	assert.True(t, IsCSV("DATA.CSV"))
	assert.False(t, IsCSV("data.tsv"))
	assert.False(t, IsCSV("csv"))
}
