package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CardConfig holds the A2A discovery card published for an agent.
type CardConfig struct {
	HumanReadableID    string          `yaml:"human_readable_id"`
	Description        string          `yaml:"description"`
	Version            string          `yaml:"version"`
	DocumentationURL   string          `yaml:"documentation_url"`
	Provider           *ProviderConfig `yaml:"provider"`
	Capabilities       Capabilities    `yaml:"capabilities"`
	AuthSchemes        []string        `yaml:"auth_schemes"`
	Skills             []SkillConfig   `yaml:"skills"`
	Tags               []string        `yaml:"tags"`
	DefaultInputModes  []string        `yaml:"default_input_modes"`
	DefaultOutputModes []string        `yaml:"default_output_modes"`
}

// ProviderConfig names the organization operating an agent.
type ProviderConfig struct {
	Organization string `yaml:"organization"`
	URL          string `yaml:"url"`
}

// Capabilities lists optional protocol features.
type Capabilities struct {
	Streaming              bool `yaml:"streaming"`
	PushNotifications      bool `yaml:"push_notifications"`
	StateTransitionHistory bool `yaml:"state_transition_history"`
}

// SkillConfig describes one advertised skill.
type SkillConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	Examples    []string `yaml:"examples"`
}

// AgentConfig is an agent seeded into the database at startup.
type AgentConfig struct {
	ID                   int64       `yaml:"id"`
	Name                 string      `yaml:"name"`
	Model                string      `yaml:"model"`
	Prompt               string      `yaml:"prompt"`
	KnowledgeBases       []string    `yaml:"knowledge_bases"`
	Tools                []string    `yaml:"tools"`
	MCPServers           []string    `yaml:"mcp_servers"`
	Address              string      `yaml:"address"`
	KeySeed              string      `yaml:"key_seed"`
	RegistrationPieceCID string      `yaml:"registration_piece_cid"`
	Card                 *CardConfig `yaml:"card"`
}

// Config holds the service configuration loaded from agent.yaml.
type Config struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Database       string        `yaml:"database"`
	LogLevel       string        `yaml:"log_level"`
	PublicURL      string        `yaml:"public_url"`
	DefaultAgentID int64         `yaml:"default_agent_id"`
	TaskTimeout    time.Duration `yaml:"task_timeout"`
	MaxHistory     int           `yaml:"max_history"`
	Agents         []AgentConfig `yaml:"agents"`
}

// Load reads and parses the agent.yaml configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Database == "" {
		c.Database = "./data/agents.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PublicURL == "" {
		c.PublicURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	if c.TaskTimeout == 0 {
		c.TaskTimeout = 2 * time.Minute
	}
	if c.MaxHistory == 0 {
		c.MaxHistory = 20
	}
	if c.DefaultAgentID == 0 && len(c.Agents) > 0 {
		c.DefaultAgentID = c.Agents[0].ID
	}
	for i := range c.Agents {
		if card := c.Agents[i].Card; card != nil && card.Version == "" {
			card.Version = "1.0.0"
		}
	}
}

// Validate checks the seeded agents for consistency.
func (c *Config) Validate() error {
	if c.TaskTimeout < 0 {
		return fmt.Errorf("task_timeout must not be negative")
	}

	seen := make(map[int64]bool, len(c.Agents))
	for i, a := range c.Agents {
		if a.ID <= 0 {
			return fmt.Errorf("agents[%d]: id must be positive", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("agents[%d]: duplicate id %d", i, a.ID)
		}
		seen[a.ID] = true
		if a.Name == "" {
			return fmt.Errorf("agents[%d]: name is required", i)
		}
		if a.Model == "" {
			return fmt.Errorf("agents[%d]: model is required", i)
		}
	}

	if c.DefaultAgentID != 0 && len(c.Agents) > 0 && !seen[c.DefaultAgentID] {
		return fmt.Errorf("default_agent_id %d does not name a configured agent", c.DefaultAgentID)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
