package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFileYAML(t *testing.T) {
	cfg, err := ParseFile("testdata/support.yaml")
	require.NoError(t, err)

	assert.Equal(t, "support", cfg.Name)
	assert.Equal(t, 6, cfg.MaxHops)
	assert.Equal(t, Backend{Provider: "openai", Model: "gpt-4o-mini"}, cfg.Backend)
	assert.Equal(t, "testdata", cfg.BasePath())
	require.Len(t, cfg.Participants, 2)
	assert.Equal(t, "billing", cfg.Participants[0].ID)
	assert.Equal(t, []string{"prompts/billing/*.md"}, cfg.Participants[0].InstructionsFiles)
	require.NotNil(t, cfg.Participants[1].Retry)
	assert.Equal(t, 2, cfg.Participants[1].Retry.MaxAttempts)
	assert.Equal(t, Store{Type: StoreSQLite, Path: "data/relay.db"}, cfg.Store)
	assert.Equal(t, Logging{Level: "debug", Format: "json"}, cfg.Logging)
	assert.NoError(t, cfg.Validate())
}

func TestParseFileJSON(t *testing.T) {
	cfg, err := ParseFile("testdata/support.json")
	require.NoError(t, err)
	assert.Equal(t, "triage", cfg.Coordinator)
	assert.Len(t, cfg.Participants, 2)
	assert.NoError(t, cfg.Validate())
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := ParseYAML([]byte("Name: x\nParticipantz: []\n"))
	assert.Error(t, err)

	_, err = ParseJSON([]byte(`{"Name": "x", "Extra": true}`))
	assert.Error(t, err)
}

func TestParseFileUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.toml")
	require.NoError(t, os.WriteFile(path, []byte("Name = 'x'"), 0644))

	_, err := ParseFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file extension")
}

func TestLoadDirectory(t *testing.T) {
	cfg, err := Load("testdata/split")
	require.NoError(t, err)

	assert.Equal(t, "split", cfg.Name)
	assert.Equal(t, 8, cfg.MaxHops)
	assert.Equal(t, "testdata/split", cfg.BasePath())

	ids := make([]string, 0, len(cfg.Participants))
	for _, p := range cfg.Participants {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"researcher", "writer", "editor"}, ids)
	assert.Equal(t, "Drafts and edits answers", cfg.Participants[1].Description)
}

func TestLoadDirectoryEmpty(t *testing.T) {
	_, err := LoadDirectory(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no yaml or json files")
}

func TestMergeKeepsBaseValues(t *testing.T) {
	base := &Config{
		Name:    "base",
		Backend: Backend{Provider: "openai", Model: "gpt-4o"},
		Logging: Logging{Level: "info"},
		Participants: []Participant{
			{ID: "a", Description: "first"},
		},
	}
	override := &Config{
		Backend: Backend{Model: "gpt-4o-mini"},
		Logging: Logging{Format: "json"},
		Participants: []Participant{
			{ID: "b", Description: "second"},
		},
	}

	merged := Merge(base, override)
	assert.Equal(t, "base", merged.Name)
	assert.Equal(t, Backend{Provider: "openai", Model: "gpt-4o-mini"}, merged.Backend)
	assert.Equal(t, Logging{Level: "info", Format: "json"}, merged.Logging)
	assert.Len(t, merged.Participants, 2)
	assert.Len(t, base.Participants, 1)
}
