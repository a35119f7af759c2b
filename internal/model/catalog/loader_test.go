package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeDataFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadMissingDirFallsBackToSeeds(t *testing.T) {
	data, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)

	require.Equal(t, DefaultProfile(), data.Profile)
	require.Equal(t, SeedProducts(), data.Products)
	require.Empty(t, data.Staff)
	require.Equal(t, []string{"description.json", "products.json", "staff.json"}, data.Defaulted)
}

func TestLoadReadsDataFiles(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "description.json", `{
		"store_name": "OVC Outfitters",
		"store_description": "Outdoor gear and repairs.",
		"product_categories": ["gear", "repairs"]
	}`)
	writeDataFile(t, dir, "products.json", `[
		{"name": "Tent", "quantity": 4},
		{"name": "Stove", "quantity": 9}
	]`)
	writeDataFile(t, dir, "staff.json", `[
		{"name": "Alice", "availability": ["2:00 PM", "4:00 PM"]}
	]`)

	data, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, "OVC Outfitters", data.Profile.StoreName)
	require.Equal(t, []string{"gear", "repairs"}, data.Profile.ProductCategories)
	require.Equal(t, []Product{{Name: "Tent", Quantity: 4}, {Name: "Stove", Quantity: 9}}, data.Products)
	require.Equal(t, []StaffMember{{Name: "Alice", Availability: []string{"2:00 PM", "4:00 PM"}}}, data.Staff)
	require.Empty(t, data.Defaulted)
}

func TestLoadPartialDataDefaultsTheRest(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "products.json", `[{"name": "Tent", "quantity": 4}]`)

	data, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, []Product{{Name: "Tent", Quantity: 4}}, data.Products)
	require.Equal(t, DefaultProfile(), data.Profile)
	require.Equal(t, []string{"description.json", "staff.json"}, data.Defaulted)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "staff.json", `{"name": truncated`)

	_, err := Load(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "staff.json")
}
