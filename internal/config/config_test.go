package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"student", "staff"}, cfg.Ranking.EligibleRoles)
	assert.Equal(t, 200, cfg.History.DefaultLimit)
	assert.Equal(t, 1000, cfg.History.MaxLimit)
	assert.Contains(t, cfg.Roles["admin"].Pages, PageWasteLog)
	assert.NotNil(t, cfg.Location())
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default().Ranking.EligibleRoles, cfg.Ranking.EligibleRoles)
}

func TestLoadFromWorkspace(t *testing.T) {
	dir := t.TempDir()
	data := []byte("ranking:\n  eligible_roles: [member]\ntimezone: Asia/Kuala_Lumpur\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ecosort.yml"), data, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"member"}, cfg.Ranking.EligibleRoles)
	assert.Equal(t, 200, cfg.History.DefaultLimit)
	assert.Equal(t, "Asia/Kuala_Lumpur", cfg.Location().String())
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"no eligible roles": "history:\n  default_limit: 10\n",
		"bad timezone":      "ranking:\n  eligible_roles: [a]\ntimezone: Mars/Olympus\n",
		"limits inverted":   "ranking:\n  eligible_roles: [a]\nhistory:\n  default_limit: 50\n  max_limit: 10\n",
		"empty page":        "ranking:\n  eligible_roles: [a]\nroles:\n  a:\n    pages: [\"\"]\n",
		"not yaml":          "ranking: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvKeepsProcessValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ECOSORT_TEST_A=file\nECOSORT_TEST_B=file\n"), 0o644))
	t.Setenv("ECOSORT_TEST_A", "process")
	t.Setenv("ECOSORT_TEST_B", "")
	os.Unsetenv("ECOSORT_TEST_B")

	loaded := LoadEnv(dir, nil)
	require.Len(t, loaded, 1)
	assert.Equal(t, "process", os.Getenv("ECOSORT_TEST_A"))
	assert.Equal(t, "file", os.Getenv("ECOSORT_TEST_B"))
}
