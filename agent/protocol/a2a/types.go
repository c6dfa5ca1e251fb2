package a2a

// AgentCapabilities advertises optional protocol features of an executor.
type AgentCapabilities struct {
	// Streaming is always false: tasks are answered with their terminal state.
	Streaming bool `json:"streaming"`
	// Cancellation indicates the executor honors cancel requests.
	Cancellation bool `json:"cancellation"`
}

// AgentSkill describes one thing an executor can do.
type AgentSkill struct {
	// ID is the unique identifier of this skill.
	ID string `json:"id"`
	// Name is a short human readable name.
	Name string `json:"name"`
	// Description explains what the skill does.
	Description string `json:"description"`
	// Tags are free-form search keywords.
	Tags []string `json:"tags,omitempty"`
	// InputModes lists accepted content modalities, e.g. "text".
	InputModes []string `json:"input_modes"`
	// OutputModes lists produced content modalities.
	OutputModes []string `json:"output_modes"`
}

// AgentCard is the capability descriptor an executor serves at /.well-known/agent.json.
// It is built once at startup and never changes afterwards.
type AgentCard struct {
	// Name is the unique identifier for this agent.
	Name string `json:"name"`
	// Description is a human readable description of the agent's purpose.
	Description string `json:"description"`
	// URL is the endpoint where this agent can be reached.
	URL string `json:"url"`
	// Version is the agent version.
	Version string `json:"version"`
	// Capabilities lists optional protocol features.
	Capabilities AgentCapabilities `json:"capabilities"`
	// Skills lists what the agent can do.
	Skills []AgentSkill `json:"skills"`
	// DefaultInputModes applies to skills that do not override it.
	DefaultInputModes []string `json:"default_input_modes"`
	// DefaultOutputModes applies to skills that do not override it.
	DefaultOutputModes []string `json:"default_output_modes"`
	// Metadata holds extra key/value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewAgentCard creates an AgentCard with the required fields and text-only modes.
func NewAgentCard(name, description, url, version string) *AgentCard {
	return &AgentCard{
		Name:               name,
		Description:        description,
		URL:                url,
		Version:            version,
		Capabilities:       AgentCapabilities{Cancellation: true},
		Skills:             make([]AgentSkill, 0),
		DefaultInputModes:  []string{string(PartKindText)},
		DefaultOutputModes: []string{string(PartKindText)},
		Metadata:           make(map[string]string),
	}
}

// AddSkill appends a skill to the card. Empty modes fall back to the card defaults.
func (c *AgentCard) AddSkill(skill AgentSkill) *AgentCard {
	if len(skill.InputModes) == 0 {
		skill.InputModes = append([]string(nil), c.DefaultInputModes...)
	}
	if len(skill.OutputModes) == 0 {
		skill.OutputModes = append([]string(nil), c.DefaultOutputModes...)
	}
	c.Skills = append(c.Skills, skill)
	return c
}

// SetMetadata sets a metadata key/value pair.
func (c *AgentCard) SetMetadata(key, value string) *AgentCard {
	if c.Metadata == nil {
		c.Metadata = make(map[string]string)
	}
	c.Metadata[key] = value
	return c
}

// GetMetadata retrieves a metadata value by key.
func (c *AgentCard) GetMetadata(key string) (string, bool) {
	if c.Metadata == nil {
		return "", false
	}
	value, ok := c.Metadata[key]
	return value, ok
}

// HasSkill checks if the agent has a skill with the given ID.
func (c *AgentCard) HasSkill(id string) bool {
	return c.GetSkill(id) != nil
}

// GetSkill retrieves a skill by ID.
func (c *AgentCard) GetSkill(id string) *AgentSkill {
	for i := range c.Skills {
		if c.Skills[i].ID == id {
			return &c.Skills[i]
		}
	}
	return nil
}

// Validate checks that the AgentCard has all required fields.
func (c *AgentCard) Validate() error {
	if c.Name == "" {
		return ErrMissingName
	}
	if c.Description == "" {
		return ErrMissingDescription
	}
	if c.URL == "" {
		return ErrMissingURL
	}
	if c.Version == "" {
		return ErrMissingVersion
	}
	return nil
}
