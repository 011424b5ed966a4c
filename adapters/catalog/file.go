package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/personavoice/server/domain/entities"
	"github.com/personavoice/server/domain/repositories"
)

const defaultCharactersFile = "data/characters.json"

// FileCatalogConfig holds configuration for the FileCatalog adapter
// Optional fields with defaults:
// - Path: The JSON file the character profiles are loaded from
// (default: "data/characters.json"). When the file does not exist it is
// seeded with the built-in default characters.
type FileCatalogConfig struct {
	Path string // Optional: path of the characters JSON file
}

// FileCatalog implements CharacterCatalog backed by a JSON file on disk.
// Profiles are loaded once at construction; the catalog is immutable and
// safe for concurrent reads without locking.
type FileCatalog struct {
	characters []entities.CharacterProfile
	byID       map[string]int
	logger     *zap.Logger
}

// Ensure FileCatalog implements the CharacterCatalog interface
var _ repositories.CharacterCatalog = (*FileCatalog)(nil)

// NewFileCatalog creates a catalog from the configured JSON file. A missing
// file is created and seeded with the default characters so a fresh
// deployment works without any data provisioning step.
func NewFileCatalog(config FileCatalogConfig, logger *zap.Logger) (*FileCatalog, error) {
	path := config.Path
	if path == "" {
		path = defaultCharactersFile
		logger.Info("Using default characters file", zap.String("path", path))
	}

	characters, err := loadOrSeed(path, logger)
	if err != nil {
		return nil, err
	}
	if len(characters) == 0 {
		return nil, fmt.Errorf("characters file %s contains no characters", path)
	}

	byID := make(map[string]int, len(characters))
	for i, c := range characters {
		if c.ID == "" {
			return nil, fmt.Errorf("characters file %s: character at index %d has no id", path, i)
		}
		if _, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("characters file %s: duplicate character id %q", path, c.ID)
		}
		byID[c.ID] = i
	}

	logger.Info("Character catalog loaded",
		zap.String("path", path),
		zap.Int("characters", len(characters)))

	return &FileCatalog{
		characters: characters,
		byID:       byID,
		logger:     logger,
	}, nil
}

func loadOrSeed(path string, logger *zap.Logger) ([]entities.CharacterProfile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Info("Characters file not found, seeding defaults", zap.String("path", path))
		characters := DefaultCharacters()
		if writeErr := writeCharacters(path, characters); writeErr != nil {
			// Seeding to disk is best effort; the in-memory defaults
			// still serve the process.
			logger.Warn("Failed to persist default characters", zap.Error(writeErr))
		}
		return characters, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read characters file: %w", err)
	}

	var characters []entities.CharacterProfile
	if err := json.Unmarshal(data, &characters); err != nil {
		return nil, fmt.Errorf("failed to parse characters file %s: %w", path, err)
	}
	return characters, nil
}

func writeCharacters(path string, characters []entities.CharacterProfile) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create characters directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(characters, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal characters: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write characters file: %w", err)
	}
	return nil
}

// GetByID returns the character with the given id
func (c *FileCatalog) GetByID(id string) (*entities.CharacterProfile, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	profile := c.characters[i]
	return &profile, true
}

// All returns every character in catalog order
func (c *FileCatalog) All() []entities.CharacterProfile {
	out := make([]entities.CharacterProfile, len(c.characters))
	copy(out, c.characters)
	return out
}

// Search matches the query case-insensitively against name, background and
// tags, optionally restricted to one category.
func (c *FileCatalog) Search(query, category string) []entities.CharacterProfile {
	query = strings.ToLower(query)
	results := []entities.CharacterProfile{}

	for _, character := range c.characters {
		if category != "" && category != "all" && character.Category != category {
			continue
		}
		if matchesQuery(character, query) {
			results = append(results, character)
		}
	}
	return results
}

func matchesQuery(character entities.CharacterProfile, query string) bool {
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(character.Name), query) {
		return true
	}
	if strings.Contains(strings.ToLower(character.Background), query) {
		return true
	}
	for _, tag := range character.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// Categories returns the sorted distinct categories present in the catalog
func (c *FileCatalog) Categories() []string {
	seen := make(map[string]struct{})
	for _, character := range c.characters {
		if character.Category != "" {
			seen[character.Category] = struct{}{}
		}
	}
	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}
