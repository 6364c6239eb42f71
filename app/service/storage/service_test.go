package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendWritesDocument(t *testing.T) {
	dir := t.TempDir()

	svc, err := NewService(dir)
	require.NoError(t, err)

	doc := map[string]any{
		"reported_symptoms": []string{"hives"},
		"takes_metformin":   false,
	}

	require.NoError(t, svc.Append(context.Background(), "patient_summary_s1.json", doc))

	data, err := os.ReadFile(filepath.Join(dir, "patient_summary_s1.json"))
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, false, back["takes_metformin"])
	assert.Equal(t, []any{"hives"}, back["reported_symptoms"])
}

func TestAppendCancelledContext(t *testing.T) {
	svc, err := NewService(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = svc.Append(ctx, "doc.json", map[string]any{})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestNewServiceCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	_, err := NewService(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
