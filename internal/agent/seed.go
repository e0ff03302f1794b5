package agent

import (
	"context"
	"fmt"
	"strings"

	"agent-host/internal/a2a"
	"agent-host/internal/config"
	"agent-host/internal/storage"
)

// Seeder stores agents and their cards.
type Seeder interface {
	SaveAgent(ctx context.Context, a *storage.Agent) error
	SaveAgentCard(ctx context.Context, card *a2a.AgentCard) (int64, error)
}

// Seed upserts the configured agents and their discovery cards.
func Seed(ctx context.Context, store Seeder, cfg *config.Config) error {
	for _, ac := range cfg.Agents {
		rec := &storage.Agent{
			ID:                   ac.ID,
			Name:                 ac.Name,
			Model:                ac.Model,
			Prompt:               ac.Prompt,
			KnowledgeBases:       ac.KnowledgeBases,
			Tools:                ac.Tools,
			MCPServers:           ac.MCPServers,
			Address:              ac.Address,
			KeySeed:              ac.KeySeed,
			RegistrationPieceCID: ac.RegistrationPieceCID,
		}
		if err := store.SaveAgent(ctx, rec); err != nil {
			return fmt.Errorf("seed agent %d: %w", ac.ID, err)
		}
		if _, err := store.SaveAgentCard(ctx, CardFromConfig(ac, cfg.PublicURL)); err != nil {
			return fmt.Errorf("seed card for agent %d: %w", ac.ID, err)
		}
	}
	return nil
}

// CardFromConfig builds the discovery card of a configured agent. The card
// URL is the agent's A2A endpoint under publicURL.
func CardFromConfig(ac config.AgentConfig, publicURL string) *a2a.AgentCard {
	card := &a2a.AgentCard{
		AgentID:            ac.ID,
		Name:               ac.Name,
		URL:                fmt.Sprintf("%s/agents/%d/a2a", strings.TrimRight(publicURL, "/"), ac.ID),
		Version:            "1.0.0",
		AuthSchemes:        []string{},
		Skills:             []a2a.Skill{},
		Tags:               []string{},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}

	cc := ac.Card
	if cc == nil {
		return card
	}

	card.HumanReadableID = cc.HumanReadableID
	card.Description = cc.Description
	card.DocumentationURL = cc.DocumentationURL
	if cc.Version != "" {
		card.Version = cc.Version
	}
	if cc.Provider != nil {
		card.Provider = &a2a.AgentProvider{
			Organization: cc.Provider.Organization,
			URL:          cc.Provider.URL,
		}
	}
	card.Capabilities = a2a.AgentCapabilities{
		Streaming:              cc.Capabilities.Streaming,
		PushNotifications:      cc.Capabilities.PushNotifications,
		StateTransitionHistory: cc.Capabilities.StateTransitionHistory,
	}
	if cc.AuthSchemes != nil {
		card.AuthSchemes = cc.AuthSchemes
	}
	for _, s := range cc.Skills {
		card.Skills = append(card.Skills, a2a.Skill{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Tags:        s.Tags,
			Examples:    s.Examples,
		})
	}
	if cc.Tags != nil {
		card.Tags = cc.Tags
	}
	if len(cc.DefaultInputModes) > 0 {
		card.DefaultInputModes = cc.DefaultInputModes
	}
	if len(cc.DefaultOutputModes) > 0 {
		card.DefaultOutputModes = cc.DefaultOutputModes
	}
	return card
}
