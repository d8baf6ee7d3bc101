package sales

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

func TestWriteXLSX(t *testing.T) {
	s := Sale{
		ID:        "0a1b2c3d-aaaa-bbbb-cccc-000000000000",
		CreatedAt: time.Date(2024, 3, 15, 14, 30, 5, 0, time.UTC),
		Items: []Item{
			{Name: "Coffee", Category: "Drinks", Price: decimal.RequireFromString("2.50")},
			{Name: "Cake", Category: "Food", Price: decimal.RequireFromString("4")},
		},
		Total:    decimal.RequireFromString("6.50"),
		Discount: decimal.Zero,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []Sale{s}, time.UTC))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)

	salesSheet, ok := file.Sheet["Sales"]
	require.True(t, ok)
	require.Len(t, salesSheet.Rows, 2)
	assert.Equal(t, "Ticket", salesSheet.Rows[0].Cells[0].Value)
	assert.Equal(t, "0A1B2C3D", salesSheet.Rows[1].Cells[0].Value)
	assert.Equal(t, "15/03/2024", salesSheet.Rows[1].Cells[1].Value)
	assert.Equal(t, "14:30:05", salesSheet.Rows[1].Cells[2].Value)

	itemsSheet, ok := file.Sheet["Items"]
	require.True(t, ok)
	require.Len(t, itemsSheet.Rows, 3)
	assert.Equal(t, "Cake", itemsSheet.Rows[2].Cells[1].Value)
}
