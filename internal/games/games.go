package games

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Game is one entry of the creation game picker. Emoji doubles as the
// reaction the leader clicks.
type Game struct {
	Name  string `yaml:"name"`
	Emoji string `yaml:"emoji"`
}

type Catalog struct {
	games   []Game
	byEmoji map[string]Game
}

type catalogFile struct {
	Games []Game `yaml:"games"`
}

var ErrEmptyCatalog = errors.New("game catalog is empty")

func New(games []Game) (*Catalog, error) {
	if len(games) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{byEmoji: make(map[string]Game, len(games))}
	names := make(map[string]bool, len(games))
	for i, g := range games {
		g.Name = strings.TrimSpace(g.Name)
		g.Emoji = strings.TrimSpace(g.Emoji)
		if g.Name == "" || g.Emoji == "" {
			return nil, fmt.Errorf("game #%d: name and emoji are required", i+1)
		}
		if _, dup := c.byEmoji[g.Emoji]; dup {
			return nil, fmt.Errorf("game %q: emoji %s already used", g.Name, g.Emoji)
		}
		key := strings.ToLower(g.Name)
		if names[key] {
			return nil, fmt.Errorf("game %q listed twice", g.Name)
		}
		names[key] = true
		c.byEmoji[g.Emoji] = g
		c.games = append(c.games, g)
	}
	return c, nil
}

// Load reads a catalog from a YAML file of the form
//
//	games:
//	  - name: Valorant
//	    emoji: 🔫
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse game catalog %s: %w", path, err)
	}
	return New(f.Games)
}

func Default() *Catalog {
	c, _ := New([]Game{
		{Name: "League of Legends", Emoji: "🏆"},
		{Name: "Valorant", Emoji: "🔫"},
		{Name: "Counter-Strike 2", Emoji: "💣"},
		{Name: "Minecraft", Emoji: "🧱"},
		{Name: "Fortnite", Emoji: "🪂"},
		{Name: "Inna", Emoji: "🎮"},
	})
	return c
}

func (c *Catalog) Games() []Game {
	out := make([]Game, len(c.games))
	copy(out, c.games)
	return out
}

func (c *Catalog) ByEmoji(emoji string) (Game, bool) {
	g, ok := c.byEmoji[strings.TrimSpace(emoji)]
	return g, ok
}
