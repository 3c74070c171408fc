package entities

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryTransport Category = "transport"
	CategoryEducation Category = "education"
	CategorySports    Category = "sports"
	CategoryFood      Category = "food"
	CategoryHealth    Category = "health"
)

// ParseCategory normalizes raw input; ok is false for unknown values. An empty
// input yields an empty category, which list filters treat as "any".
func ParseCategory(raw string) (Category, bool) {
	value := Category(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case "", CategoryTransport, CategoryEducation, CategorySports, CategoryFood, CategoryHealth:
		return value, true
	default:
		return "", false
	}
}

// Topic is the subject put to a vote. SessionID is set at most once.
type Topic struct {
	TopicID   string
	Subject   string
	Category  Category
	OwnerID   string
	SessionID string
	CreatedAt time.Time
}

func (t Topic) HasSession() bool {
	return strings.TrimSpace(t.SessionID) != ""
}

func (t Topic) OwnedBy(identity string) bool {
	return strings.TrimSpace(identity) != "" && strings.TrimSpace(t.OwnerID) == strings.TrimSpace(identity)
}
