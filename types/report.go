package types

import (
	"strings"
	"time"
)

type Category string

const (
	WasteManagement   Category = "Waste Management"
	RoadDamage        Category = "Road Damage"
	StreetLight       Category = "Street Light"
	WaterSupply       Category = "Water Supply"
	Sanitation        Category = "Sanitation"
	SewageAndDrainage Category = "Sewage and Drainage"
	OtherCategory     Category = "Other"
)

// Categories is the closed set offered on the home screen, in display order.
var Categories = []Category{
	WasteManagement,
	RoadDamage,
	StreetLight,
	WaterSupply,
	Sanitation,
	SewageAndDrainage,
	OtherCategory,
}

// Known reports whether c belongs to the closed category set.
func (c Category) Known() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Display maps values outside the closed set to "Other" without touching the stored value.
func (c Category) Display() Category {
	if c.Known() {
		return c
	}
	return OtherCategory
}

// ParseCategory normalizes client input. Blank input means "Other".
// Matching is case-insensitive and accepts the legacy "Others" spelling.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "others") {
		return OtherCategory, true
	}
	for _, known := range Categories {
		if strings.EqualFold(s, string(known)) {
			return known, true
		}
	}
	return OtherCategory, false
}

type Status string

const (
	Pending    Status = "pending"
	InProgress Status = "in-progress"
	Resolved   Status = "resolved"
)

// Known reports whether s is one of the three lifecycle states.
func (s Status) Known() bool {
	return s == Pending || s == InProgress || s == Resolved
}

// Report is a persisted civic issue. Status is written once as pending;
// later transitions come from administrative processes only.
type Report struct {
	ID        string          `firestore:"-" json:"id"` // tell firestore to ignore
	Title     string          `firestore:"title" json:"title"`
	Category  Category        `firestore:"category" json:"category"`
	Location  *LocationRecord `firestore:"location" json:"location"`
	Images    []string        `firestore:"images" json:"images"`
	VoiceNote *string         `firestore:"voiceNote" json:"voiceNote"`
	Status    Status          `firestore:"status" json:"status"`
	UserID    string          `firestore:"userId" json:"userId"`
	CreatedAt time.Time       `firestore:"createdAt,serverTimestamp" json:"createdAt"`
	Upvotes   int             `firestore:"upvotes" json:"upvotes"`
}

// User is the authenticated submitter as seen by this service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}
