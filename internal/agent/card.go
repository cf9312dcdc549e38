// Package agent holds the A2A agent card served at /.well-known/agent.json.
package agent

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

//go:embed agent.json
var rawCard []byte

// AgentCardData is the validated card, set by LoadAgentCard.
var AgentCardData []byte

var (
	loadOnce sync.Once
	loadErr  error
)

// LoadAgentCard validates the embedded card once and publishes it in
// AgentCardData.
func LoadAgentCard() error {
	loadOnce.Do(func() {
		var card struct {
			Name   string            `json:"name"`
			URL    string            `json:"url"`
			Skills []json.RawMessage `json:"skills"`
		}
		if err := json.Unmarshal(rawCard, &card); err != nil {
			loadErr = fmt.Errorf("invalid agent card: %w", err)
			return
		}
		if card.Name == "" || card.URL == "" || len(card.Skills) == 0 {
			loadErr = errors.New("agent card is incomplete")
			return
		}
		AgentCardData = rawCard
	})
	return loadErr
}
