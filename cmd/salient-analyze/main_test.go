package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/salient/internal/config"
	"github.com/scrypster/salient/internal/engine"
	"github.com/scrypster/salient/internal/oracle"
	"github.com/scrypster/salient/internal/storage/sqlite"
	"github.com/scrypster/salient/pkg/types"
)

func TestReadTranscript_ParsesHistoryAndCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	doc := `{
		"history": [
			{"id": 1, "text": "hello", "speaker": "alice"},
			{"id": 2, "text": "hi there", "speaker": "bob"}
		],
		"current": {"id": 3, "text": "how are you", "speaker": "alice"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	tr, err := readTranscript(path)
	require.NoError(t, err)
	require.Len(t, tr.History, 2)
	assert.Equal(t, int64(2), tr.History[1].ID)
	assert.Equal(t, "how are you", tr.Current.Text)
}

func TestReadTranscript_RejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := readTranscript(path)
	assert.Error(t, err)
}

func TestWriteResult_EncodesJSON(t *testing.T) {
	result := &types.AnalyzeResult{
		Scored:     []types.ScoredUtterance{},
		Important:  []types.ScoredUtterance{},
		NullScores: []float64{0.1, 0.2},
	}

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, result, false))

	var decoded types.AnalyzeResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, result.NullScores, decoded.NullScores)
}

func TestOpenAnchorStore_SelectsBackend(t *testing.T) {
	ctx := context.Background()
	orc := oracle.NewLocalOracle()

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	mem, err := openAnchorStore(ctx, cfg, orc, "probe")
	require.NoError(t, err)
	defer func() { _ = mem.Close() }()
	_, isMemory := mem.(*engine.AnchorMemory)
	assert.True(t, isMemory, "the default backend is the in-process store")

	cfg.Anchors.Store = "sqlite"
	cfg.Anchors.Path = filepath.Join(t.TempDir(), "anchors.db")
	durable, err := openAnchorStore(ctx, cfg, orc, "probe")
	require.NoError(t, err)
	defer func() { _ = durable.Close() }()
	_, isSQLite := durable.(*sqlite.AnchorStore)
	assert.True(t, isSQLite)

	cfg.Anchors.Store = "redis"
	_, err = openAnchorStore(ctx, cfg, orc, "probe")
	assert.ErrorContains(t, err, "unknown anchor store")
}
