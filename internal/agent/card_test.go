package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAgentCard(t *testing.T) {
	require.NoError(t, LoadAgentCard())
	require.NotEmpty(t, AgentCardData)

	var card map[string]any
	require.NoError(t, json.Unmarshal(AgentCardData, &card))
	assert.Equal(t, "Radiant Launch Agent", card["name"])
	assert.Contains(t, card["url"], "/a2a/campaign")

	// Loading twice is harmless.
	assert.NoError(t, LoadAgentCard())
}
