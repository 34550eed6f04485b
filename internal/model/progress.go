package model

import "time"

// Profile holds display metadata copied from the identity provider.
type Profile struct {
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// Complete reports whether every profile field is populated.
func (p Profile) Complete() bool {
	return p.DisplayName != "" && p.Email != "" && p.PhotoURL != ""
}

// UserProgress is the per-user progression record.
type UserProgress struct {
	UserID          string
	Level           int
	Score           int
	TotalXP         int
	Hearts          int
	LastLoginDayKey *string
	// Inventory is a multiset of item ids; duplicates are separate instances.
	Inventory    []string
	EarnedBadges []string
	Profile      Profile
	UpdatedAt    time.Time

	// Version is the optimistic-concurrency token assigned by the store.
	Version int64
}

const (
	DefaultLevel  = 1
	DefaultHearts = 3
)

// NewUserProgress returns the record created on first sign-in.
func NewUserProgress(userID string) *UserProgress {
	return &UserProgress{
		UserID:       userID,
		Level:        DefaultLevel,
		Hearts:       DefaultHearts,
		Inventory:    []string{},
		EarnedBadges: []string{},
	}
}

// Clone returns a deep copy so pure operations never alias their input.
func (u *UserProgress) Clone() *UserProgress {
	if u == nil {
		return nil
	}
	c := *u
	if u.LastLoginDayKey != nil {
		v := *u.LastLoginDayKey
		c.LastLoginDayKey = &v
	}
	c.Inventory = append([]string{}, u.Inventory...)
	c.EarnedBadges = append([]string{}, u.EarnedBadges...)
	return &c
}

func (u *UserProgress) HasItem(item string) bool {
	for _, it := range u.Inventory {
		if it == item {
			return true
		}
	}
	return false
}

// ConsumeItem removes exactly one instance of item. It returns false when
// the item is not held.
func (u *UserProgress) ConsumeItem(item string) bool {
	for i, it := range u.Inventory {
		if it == item {
			u.Inventory = append(u.Inventory[:i:i], u.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

func (u *UserProgress) HasBadge(id string) bool {
	for _, b := range u.EarnedBadges {
		if b == id {
			return true
		}
	}
	return false
}
