package catalog

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knapevo/internal/model"
)

func TestLoadCSV(t *testing.T) {
	catalog, err := Load(filepath.Join("testdata", "products.csv"), "")
	require.NoError(t, err)
	require.Len(t, catalog, 14)
	assert.Equal(t, model.Item{Name: "Refrigerator A", UnitValue: 999.90, UnitSpace: 0.751, MaxQuantity: 1}, catalog[0])
	assert.Equal(t, 4, catalog[6].MaxQuantity)
}

func TestXLSXRoundTrip(t *testing.T) {
	want := model.Catalog{
		{Name: "Refrigerator A", UnitValue: 999.9, UnitSpace: 0.751, MaxQuantity: 1},
		{Name: "Cell phone", UnitValue: 2199.12, UnitSpace: 0.00000899, MaxQuantity: 2},
		{Name: "Ventilator", UnitValue: 199.9, UnitSpace: 0.496, MaxQuantity: 0},
	}
	path := filepath.Join(t.TempDir(), "products.xlsx")
	require.NoError(t, WriteXLSX(path, want))

	got, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = LoadXLSX(path, "Missing")
	assert.Error(t, err)
}

func TestReadCSVHeaderOrderAndCase(t *testing.T) {
	input := "quantity, SPACE ,Product,price\n2,0.5,Box,10\n\n1,1.5,Crate,25\n"
	catalog, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, model.Catalog{
		{Name: "Box", UnitValue: 10, UnitSpace: 0.5, MaxQuantity: 2},
		{Name: "Crate", UnitValue: 25, UnitSpace: 1.5, MaxQuantity: 1},
	}, catalog)
}

func TestReadCSVAcceptsIntegralFloatQuantity(t *testing.T) {
	catalog, err := ReadCSV(strings.NewReader("Product,Price,Space,Quantity\nBox,1,1,3.0\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, catalog[0].MaxQuantity)
}

func TestReadCSVErrors(t *testing.T) {
	cases := map[string]string{
		"missing column":      "Product,Price,Space\nBox,1,1\n",
		"bad price":           "Product,Price,Space,Quantity\nBox,cheap,1,1\n",
		"fractional quantity": "Product,Price,Space,Quantity\nBox,1,1,1.5\n",
		"negative space":      "Product,Price,Space,Quantity\nBox,1,-1,1\n",
		"negative quantity":   "Product,Price,Space,Quantity\nBox,1,1,-2\n",
		"duplicate name":      "Product,Price,Space,Quantity\nBox,1,1,1\nBox,2,2,2\n",
		"missing name":        "Product,Price,Space,Quantity\n,1,1,1\n",
		"missing quantity":    "Product,Price,Space,Quantity\nBox,1,1\n",
		"huge float quantity": "Product,Price,Space,Quantity\nBox,1,1,1e300\n",
		"oversized quantity":  "Product,Price,Space,Quantity\nBox,1,1,9999999999\n",
		"infinite space":      "Product,Price,Space,Quantity\nBox,1,Inf,1\n",
	}
	for name, input := range cases {
		_, err := ReadCSV(strings.NewReader(input))
		assert.Error(t, err, name)
	}
}

func TestEmptyCatalog(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Product,Price,Space,Quantity\n"))
	assert.True(t, errors.Is(err, ErrEmptyCatalog))
	_, err = ReadCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptyCatalog))
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := Load("products.json", "")
	assert.Error(t, err)
}

func TestValidateQuantityLimit(t *testing.T) {
	item := model.Item{Name: "Box", UnitValue: 1, UnitSpace: 1, MaxQuantity: model.MaxItemQuantity}
	require.NoError(t, Validate(model.Catalog{item}))

	item.MaxQuantity++
	assert.Error(t, Validate(model.Catalog{item}))
}
