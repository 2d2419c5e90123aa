package catalog

import (
	"strings"
	"testing"

	"github.com/gosimple/slug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	pools := c.Pools()
	require.Len(t, pools, 3)

	recoil, ok := c.Pool("recoil")
	require.True(t, ok)
	assert.Equal(t, int64(250), recoil.Cost)
	assert.Len(t, recoil.Templates, 12+12+5+1)

	// id выводится из названия, если не задан
	dn, ok := c.Pool(slug.Make("Dreams & Nightmares Case"))
	require.True(t, ok)
	assert.Equal(t, "Dreams & Nightmares Case", dn.Name)

	tpl, ok := c.Template("awp-dragon-lore")
	require.True(t, ok)
	assert.Equal(t, Covert, tpl.Rarity)

	_, ok = c.Pool("missing")
	assert.False(t, ok)
}

func TestCopiesExpandAdjacent(t *testing.T) {
	c, err := Load(strings.NewReader(`
[[pools]]
id = "p"
name = "P"
cost = 10
  [[pools.items]]
  id = "a"
  name = "A"
  weapon = "AK-47"
  rarity = "consumer"
  float_min = 0.1
  float_max = 0.2
  price = 5
  copies = 3
  [[pools.items]]
  id = "b"
  name = "B"
  weapon = "AWP"
  rarity = "covert"
  float_min = 0.0
  float_max = 1.0
  price = 100
`))
	require.NoError(t, err)

	p, _ := c.Pool("p")
	ids := make([]string, 0, len(p.Templates))
	for _, tpl := range p.Templates {
		ids = append(ids, tpl.ID)
	}
	assert.Equal(t, []string{"a", "a", "a", "b"}, ids)
}

func TestLoadValidation(t *testing.T) {
	item := func(extra string) string {
		return `
[[pools]]
id = "p"
name = "P"
cost = 10
  [[pools.items]]
  id = "a"
  name = "A"
  weapon = "AK-47"
` + extra
	}

	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"zero cost", strings.Replace(item(`rarity = "consumer"`), "cost = 10", "cost = 0", 1)},
		{"missing rarity", item(`float_max = 0.5`)},
		{"unknown rarity", item(`rarity = "legendary"`)},
		{"float above one", item("rarity = \"consumer\"\nfloat_max = 1.5")},
		{"inverted range", item("rarity = \"consumer\"\nfloat_min = 0.6\nfloat_max = 0.5")},
		{"negative price", item("rarity = \"consumer\"\nprice = -1")},
		{"huge price", item("rarity = \"consumer\"\nprice = 9223372036854775807")},
		{"zero copies", item("rarity = \"consumer\"\ncopies = 0")},
		{"unknown field", item("rarity = \"consumer\"\nweight = 3")},
		{"no items", "[[pools]]\nid = \"p\"\nname = \"P\"\ncost = 10\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestDuplicatePoolIDRejected(t *testing.T) {
	tpl := Template{ID: "a", Name: "A", Weapon: "AK-47", FloatMax: 1, Price: 1}
	_, err := New(
		Pool{ID: "p", Name: "P", Cost: 1, Templates: []Template{tpl}},
		Pool{ID: "p", Name: "P2", Cost: 1, Templates: []Template{tpl}},
	)
	assert.Error(t, err)
}

func TestConflictingTemplateRejected(t *testing.T) {
	a := Template{ID: "a", Name: "A", Weapon: "AK-47", FloatMax: 1, Price: 1}
	b := a
	b.Price = 2
	_, err := New(
		Pool{ID: "p1", Name: "P1", Cost: 1, Templates: []Template{a}},
		Pool{ID: "p2", Name: "P2", Cost: 1, Templates: []Template{b}},
	)
	assert.Error(t, err)
}

func TestNewFoldsRepeatedTemplates(t *testing.T) {
	common := Template{ID: "c", Name: "C", Weapon: "P250", Rarity: Consumer, FloatMax: 1, Price: 1}
	rare := Template{ID: "r", Name: "R", Weapon: "AWP", Rarity: Covert, FloatMax: 1, Price: 100}
	c, err := New(Pool{ID: "p", Name: "P", Cost: 5, Templates: []Template{common, rare, common}})
	require.NoError(t, err)

	p, _ := c.Pool("p")
	assert.Len(t, p.Templates, 3)
}

func TestWearForFloat(t *testing.T) {
	tests := []struct {
		f    float64
		want Wear
	}{
		{0, FactoryNew},
		{0.0699, FactoryNew},
		{0.07, MinimalWear},
		{0.1499, MinimalWear},
		{0.15, FieldTested},
		{0.38, WellWorn},
		{0.45, BattleScarred},
		{1, BattleScarred},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WearForFloat(tt.f), "float %v", tt.f)
	}
}

func TestTemplateValue(t *testing.T) {
	tpl := Template{Price: 1000}
	assert.Equal(t, int64(1000), tpl.Value(FactoryNew))
	assert.Equal(t, int64(850), tpl.Value(MinimalWear))
	assert.Equal(t, int64(700), tpl.Value(FieldTested))
	assert.Equal(t, int64(550), tpl.Value(WellWorn))
	assert.Equal(t, int64(450), tpl.Value(BattleScarred))
}

func TestMaxPriceValueFits(t *testing.T) {
	c, err := Load(strings.NewReader(`
[[pools]]
id = "p"
name = "P"
cost = 10
  [[pools.items]]
  id = "a"
  name = "A"
  weapon = "AK-47"
  rarity = "covert"
  price = 1000000000000
`))
	require.NoError(t, err)

	tpl, ok := c.Template("a")
	require.True(t, ok)
	assert.Equal(t, maxPrice, tpl.Value(FactoryNew))
	assert.Equal(t, maxPrice*45/100, tpl.Value(BattleScarred))
}

func TestParseEnums(t *testing.T) {
	r, err := ParseRarity("Mil-Spec")
	require.NoError(t, err)
	assert.Equal(t, MilSpec, r)
	assert.True(t, Covert > Classified)

	w, err := ParseWear("ft")
	require.NoError(t, err)
	assert.Equal(t, FieldTested, w)
	assert.Equal(t, "Field-Tested", w.String())

	_, err = ParseWear("mint")
	assert.Error(t, err)
}

func TestSearchByName(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	found := Search(c, "Dragon Lore", 5)
	require.NotEmpty(t, found)
	assert.Equal(t, "awp-dragon-lore", found[0].ID)

	assert.Nil(t, Search(c, "   ", 5))
	assert.Len(t, Search(c, "a", 2), 2)
}

func TestSearchSkipsCopies(t *testing.T) {
	tpl := Template{ID: "glock-fade", Name: "Glock-18 | Fade", Weapon: "Glock-18", Rarity: Restricted, FloatMax: 0.08, Price: 900}
	c, err := New(
		Pool{ID: "a", Name: "A", Cost: 10, Templates: []Template{tpl, tpl, tpl}},
		Pool{ID: "b", Name: "B", Cost: 10, Templates: []Template{tpl}},
	)
	require.NoError(t, err)

	found := Search(c, "glock", 0)
	require.Len(t, found, 1)
	assert.Equal(t, "glock-fade", found[0].ID)
}
