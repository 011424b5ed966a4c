package repositories

import "github.com/personavoice/server/domain/entities"

// CharacterCatalog provides read-only access to the predefined characters
type CharacterCatalog interface {
	GetByID(id string) (*entities.CharacterProfile, bool)
	All() []entities.CharacterProfile
	// Search matches the query against name, background and tags,
	// optionally restricted to a category. An empty category or "all"
	// matches every category.
	Search(query, category string) []entities.CharacterProfile
	// Categories returns the sorted set of distinct categories
	Categories() []string
}
