package booking

import (
	"github.com/BaSui01/holidayflow/agent/protocol/a2a"
)

// AgentName returns the advertised agent name for d.
func AgentName(d Domain) string {
	if k, ok := defaultRegistry.Lookup(d); ok {
		return k.AgentName
	}
	return string(d) + "Agent"
}

// NewCard builds the capability descriptor of the agent serving d at url.
func NewCard(d Domain, url, version string) (*a2a.AgentCard, error) {
	k, err := lookup(d)
	if err != nil {
		return nil, err
	}

	skill := k.Skill
	skill.Tags = append([]string(nil), k.Skill.Tags...)
	card := a2a.NewAgentCard(k.AgentName, k.Description, url, version).
		AddSkill(skill).
		SetMetadata("domain", string(d))
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return card, nil
}

// SkillID returns the default booking skill id for d.
func SkillID(d Domain) string {
	return "book_" + string(d)
}
