// Package seed provides database seeding utilities for development and testing.
package seed

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/kvo5/marvel-madness/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed fans.yml
var defaultFixtures []byte

// Fixtures is a hand-written data set: users with their posts, and follow edges.
type Fixtures struct {
	Users   []UserFixture   `yaml:"users"`
	Follows []FollowFixture `yaml:"follows"`
}

// UserFixture describes one user and the text of their posts, oldest first.
type UserFixture struct {
	ID          string   `yaml:"id"`
	Email       string   `yaml:"email"`
	Username    string   `yaml:"username"`
	DisplayName string   `yaml:"display_name"`
	Bio         string   `yaml:"bio"`
	Location    string   `yaml:"location"`
	Role        string   `yaml:"role"`
	Rank        string   `yaml:"rank"`
	Posts       []string `yaml:"posts"`
}

// FollowFixture is a follower -> following edge.
type FollowFixture struct {
	Follower  string `yaml:"follower"`
	Following string `yaml:"following"`
}

// DefaultFixtures returns the built-in fan community.
func DefaultFixtures() (*Fixtures, error) {
	return ParseFixtures(defaultFixtures)
}

// LoadFixtures reads a fixtures file from path.
func LoadFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(raw)
}

// ParseFixtures decodes and validates a YAML fixture set.
func ParseFixtures(raw []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate checks that users are well formed and that follows reference known users.
func (fx *Fixtures) Validate() error {
	known := make(map[string]bool, len(fx.Users))
	for i, u := range fx.Users {
		if u.ID == "" || u.Email == "" || u.Username == "" {
			return fmt.Errorf("user %d: id, email and username are required", i)
		}
		if known[u.ID] {
			return fmt.Errorf("user %s: duplicate id", u.ID)
		}
		known[u.ID] = true

		if u.Role != "" {
			if _, ok := models.ParseRole(u.Role); !ok {
				return fmt.Errorf("user %s: unknown role %q", u.ID, u.Role)
			}
		}
		if u.Rank != "" && !models.IsValidRank(u.Rank) {
			return fmt.Errorf("user %s: unknown rank %q", u.ID, u.Rank)
		}
		for _, p := range u.Posts {
			if err := models.ValidatePostText(p); err != nil {
				return fmt.Errorf("user %s: post %q: %w", u.ID, p, err)
			}
		}
	}

	for _, f := range fx.Follows {
		if !known[f.Follower] || !known[f.Following] {
			return fmt.Errorf("follow %s -> %s references an unknown user", f.Follower, f.Following)
		}
	}
	return nil
}

func (u UserFixture) model() *models.User {
	user := &models.User{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		Location:    u.Location,
		Rank:        u.Rank,
	}
	if role, ok := models.ParseRole(u.Role); ok {
		user.Role = &role
	}
	return user
}
