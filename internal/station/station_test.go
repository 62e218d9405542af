package station

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDirectory(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	assert.Greater(t, d.Len(), 10)
	assert.True(t, d.Has("0551"))
	assert.Equal(t, "Suseo", d.NameOf("0551"))
	assert.Equal(t, "9999", d.NameOf("9999"), "unknown ids fall back to the id")
	assert.False(t, d.Has("9999"))
}

func TestLoadYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "stations.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("stations:\n  - id: A\n    name: Alpha\n  - id: B\n"), 0o644))
	d, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", d.NameOf("A"))
	assert.Equal(t, "B", d.NameOf("B"), "missing name defaults to id")

	jsonPath := filepath.Join(dir, "stations.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"stations":[{"id":"X","name":"Xeno"}]}`), 0o644))
	d, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "Xeno", d.NameOf("X"))

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestNewRejectsBadEntries(t *testing.T) {
	_, err := New([]Station{{ID: "A"}, {ID: "A"}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = New([]Station{{ID: " ", Name: "Blank"}})
	assert.ErrorContains(t, err, "no id")
}

func TestAllIsSortedCopy(t *testing.T) {
	d, err := LoadReader(strings.NewReader("stations:\n  - {id: b, name: Bravo}\n  - {id: a, name: Alpha}\n"))
	require.NoError(t, err)

	all := d.All()
	require.Len(t, all, 2)
	assert.Equal(t, "Alpha", all[0].Name)

	all[0].Name = "changed"
	assert.Equal(t, "Alpha", d.NameOf("a"))
	assert.Len(t, d.Search("brav"), 1)
	assert.Len(t, d.Search(""), 2)
}
