package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCatalog() Catalog {
	return Catalog{
		"locations": &ModuleGroup{
			Items: map[string][]*Item{
				"vaults": {
					{ID: "vault_13", Name: "VAULT 13", Lore: "A sealed vault."},
					{ID: "vault_101", Name: "VAULT 101", Lore: "Never opened."},
				},
				"settlements": {},
			},
		},
		"factions": &ModuleGroup{
			Items: map[string][]*Item{
				"major": {
					{ID: "ncr", Name: "NCR", Lore: "A federation of towns."},
				},
			},
		},
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, Save(path, sampleCatalog()))

	c, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, c, "locations")
	assert.Len(t, c["locations"].Items["vaults"], 2)
	assert.Equal(t, "VAULT 13", c["locations"].Items["vaults"][0].Name)
}

func TestLoad_MalformedIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, Save(path, sampleCatalog()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "catalog.json", entries[0].Name())
}

func TestValidTargets(t *testing.T) {
	targets := sampleCatalog().ValidTargets()

	assert.True(t, targets[Target{Module: "locations", Category: "vaults"}])
	assert.True(t, targets[Target{Module: "locations", Category: "settlements"}])
	assert.True(t, targets[Target{Module: "factions", Category: "major"}])
	assert.False(t, targets[Target{Module: "locations", Category: "major"}])
	assert.False(t, targets[Target{Module: "weapons", Category: "energy"}])
}

func TestBuildIdentityIndex(t *testing.T) {
	index := BuildIdentityIndex(sampleCatalog())

	require.Len(t, index, 3)
	assert.Equal(t, Location{Module: "locations", Category: "vaults", Position: 1}, index["vault_101"])
	assert.Equal(t, Location{Module: "factions", Category: "major", Position: 0}, index["ncr"])
}

func TestBuildLoreIndex_DeterministicOrder(t *testing.T) {
	c := sampleCatalog()
	first := BuildLoreIndex(c)
	require.Len(t, first, 3)

	// Sorted by module then category: factions/major before locations/vaults.
	assert.Equal(t, "ncr", first[0].ID)
	assert.Equal(t, "vault_13", first[1].ID)
	assert.Equal(t, "vault_101", first[2].ID)

	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildLoreIndex(c))
	}
}

func TestGetAndAppend(t *testing.T) {
	c := sampleCatalog()
	index := BuildIdentityIndex(c)

	item := c.Get(index["vault_13"])
	require.NotNil(t, item)
	assert.Equal(t, "VAULT 13", item.Name)

	pos := c.Append("locations", "settlements", &Item{ID: "shady_sands"})
	assert.Zero(t, pos)
	assert.NotNil(t, c.Get(Location{Module: "locations", Category: "settlements", Position: pos}))

	assert.Nil(t, c.Get(Location{Module: "locations", Category: "vaults", Position: 99}))
	assert.Nil(t, c.Get(Location{Module: "nope", Category: "x", Position: 0}))
}
