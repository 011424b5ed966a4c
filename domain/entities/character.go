package entities

// CharacterProfile describes one of the predefined AI personas a user can
// talk to. Profiles are loaded once from the catalog and never mutated.
type CharacterProfile struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Gender        string   `json:"gender"`
	Avatar        string   `json:"avatar,omitempty"`
	Background    string   `json:"background"`
	Personality   string   `json:"personality"`
	Expertise     string   `json:"expertise"`
	Skills        []string `json:"skills"`
	SpeakingStyle string   `json:"speaking_style"`
	FamousQuotes  []string `json:"famous_quotes,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// HasSkill reports whether the profile enables the named skill.
func (c *CharacterProfile) HasSkill(name string) bool {
	for _, s := range c.Skills {
		if s == name {
			return true
		}
	}
	return false
}
