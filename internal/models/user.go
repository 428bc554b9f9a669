// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// Role is a play-style tag a user may pick for their profile.
type Role string

const (
	RoleDuelist    Role = "DUELIST"
	RoleVanguard   Role = "VANGUARD"
	RoleStrategist Role = "STRATEGIST"
)

// ParseRole normalizes raw into a Role. The second result is false for unknown values.
func ParseRole(raw string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(raw))); r {
	case RoleDuelist, RoleVanguard, RoleStrategist:
		return r, true
	}
	return "", false
}

var rankTiers = []string{"BRONZE", "SILVER", "GOLD", "PLATINUM", "DIAMOND", "GRANDMASTER", "CELESTIAL"}

// Ranks lists the competitive rank vocabulary in ascending order.
var Ranks = buildRanks()

func buildRanks() []string {
	out := make([]string, 0, len(rankTiers)*3+2)
	for _, tier := range rankTiers {
		for _, division := range []string{"III", "II", "I"} {
			out = append(out, tier+" "+division)
		}
	}
	return append(out, "ETERNITY", "ONE ABOVE ALL")
}

// IsValidRank reports whether rank belongs to the rank vocabulary.
func IsValidRank(rank string) bool {
	for _, r := range Ranks {
		if r == rank {
			return true
		}
	}
	return false
}

// User represents a member of the community. ID is issued by the identity provider.
type User struct {
	ID          string    `gorm:"primaryKey;size:191" json:"id"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	Username    string    `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Location    string    `json:"location,omitempty"`
	Role        *Role     `gorm:"type:varchar(16)" json:"role,omitempty"`
	Rank        string    `gorm:"size:32" json:"rank,omitempty"`
	Img         string    `json:"img,omitempty"`
	Cover       string    `json:"cover,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Posts []Post `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"posts,omitempty"`

	FollowersCount int64 `gorm:"->;-:migration" json:"followers_count"`
	FollowingCount int64 `gorm:"->;-:migration" json:"following_count"`
}
