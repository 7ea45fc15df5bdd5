package oracle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/salient/internal/oracle"
)

func TestNew_DefaultsToLocal(t *testing.T) {
	orc, err := oracle.New(oracle.Config{})
	require.NoError(t, err)
	require.NotNil(t, orc)

	// The local oracle works without any network.
	loss, err := orc.LossWithHistory(context.Background(), []string{"hello"}, "hello")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, loss, 1e-6)

	_, isEstimator := orc.(oracle.SurprisalEstimator)
	assert.True(t, isEstimator, "the local oracle carries the surprisal capability")
}

func TestNew_Ollama(t *testing.T) {
	orc, err := oracle.New(oracle.Config{Provider: "ollama", Model: "custom-model"})
	require.NoError(t, err)
	require.NotNil(t, orc)

	_, isEstimator := orc.(oracle.SurprisalEstimator)
	assert.False(t, isEstimator, "remote oracles have no surprisal capability")
}

func TestNew_OpenAI(t *testing.T) {
	orc, err := oracle.New(oracle.Config{Provider: "openai", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.NotNil(t, orc)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := oracle.New(oracle.Config{Provider: "carrier-pigeon"})
	assert.ErrorContains(t, err, "unsupported oracle provider")
}
