package crew

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codeswap/codeswap/pkg/models"
)

// defaultMaxTokens applies to agents that don't set max_tokens.
const defaultMaxTokens = 4096

// defaultBudgetUSD applies to crews that don't set budget_limit_usd.
const defaultBudgetUSD = 5.0

// rawCrewFile is the on-disk YAML shape. Agent names come from map keys.
type rawCrewFile struct {
	Name           string              `yaml:"name"`
	Description    string              `yaml:"description"`
	BudgetLimitUSD *float64            `yaml:"budget_limit_usd"`
	Orchestrator   string              `yaml:"orchestrator"`
	Agents         map[string]rawAgent `yaml:"agents"`
}

type rawAgent struct {
	Model        string `yaml:"model"`
	Role         string `yaml:"role"`
	SystemPrompt string `yaml:"system_prompt"`
	MaxTokens    int    `yaml:"max_tokens"`
}

// LoadConfig reads and validates a crew config from dir/{name}.yaml.
func LoadConfig(dir, name string) (*models.CrewConfig, error) {
	path := filepath.Join(dir, name+".yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		available, _ := ListConfigs(dir)
		hint := "No crews found."
		if len(available) > 0 {
			hint = "Available crews: " + strings.Join(available, ", ")
		}
		return nil, fmt.Errorf("crew config not found: %s (%s)", path, hint)
	}
	if err != nil {
		return nil, fmt.Errorf("reading crew config %s: %w", path, err)
	}

	var raw rawCrewFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing crew config %s: %w", path, err)
	}

	if raw.Name == "" || raw.Description == "" || raw.Orchestrator == "" {
		return nil, fmt.Errorf("crew config %s: name, description, and orchestrator are required", path)
	}
	if len(raw.Agents) == 0 {
		return nil, fmt.Errorf("crew config %s: agents must be a non-empty mapping", path)
	}

	cfg := &models.CrewConfig{
		Name:           raw.Name,
		Description:    raw.Description,
		Orchestrator:   raw.Orchestrator,
		Agents:         make(map[string]models.AgentDef, len(raw.Agents)),
		BudgetLimitUSD: defaultBudgetUSD,
	}
	if raw.BudgetLimitUSD != nil {
		cfg.BudgetLimitUSD = *raw.BudgetLimitUSD
	}

	for agentName, a := range raw.Agents {
		if a.Model == "" || a.Role == "" {
			return nil, fmt.Errorf("crew config %s: agent %q needs model and role", path, agentName)
		}
		role := models.AgentRole(a.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("crew config %s: agent %q has unknown role %q", path, agentName, a.Role)
		}
		maxTokens := a.MaxTokens
		if maxTokens == 0 {
			maxTokens = defaultMaxTokens
		}
		cfg.Agents[agentName] = models.AgentDef{
			Name:         agentName,
			Model:        a.Model,
			Role:         role,
			SystemPrompt: a.SystemPrompt,
			MaxTokens:    maxTokens,
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("crew config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig persists a crew config to dir/{name}.yaml and returns the path.
func SaveConfig(dir string, cfg *models.CrewConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating crews directory: %w", err)
	}

	raw := rawCrewFile{
		Name:           cfg.Name,
		Description:    cfg.Description,
		BudgetLimitUSD: &cfg.BudgetLimitUSD,
		Orchestrator:   cfg.Orchestrator,
		Agents:         make(map[string]rawAgent, len(cfg.Agents)),
	}
	for name, a := range cfg.Agents {
		raw.Agents[name] = rawAgent{
			Model:        a.Model,
			Role:         string(a.Role),
			SystemPrompt: a.SystemPrompt,
			MaxTokens:    a.MaxTokens,
		}
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("encoding crew config: %w", err)
	}

	path := filepath.Join(dir, cfg.Name+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing crew config: %w", err)
	}
	return path, nil
}

// ListConfigs returns the names of all crew configs in dir, sorted.
func ListConfigs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading crews directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// EnsureDefaultCrews creates the template crew files if dir holds no crew
// configs yet. Idempotent.
func EnsureDefaultCrews(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating crews directory: %w", err)
	}

	existing, err := ListConfigs(dir)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for name, content := range crewTemplates {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing template crew %s: %w", name, err)
		}
	}
	return nil
}
