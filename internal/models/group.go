package models

import "strings"

// Role is a member's permission level within a group.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Member is a user's membership in a group.
type Member struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// IconKind tags the value held by a GroupIcon.
type IconKind string

const (
	IconNone  IconKind = ""
	IconEmoji IconKind = "emoji"
	IconURL   IconKind = "url"
)

// GroupIcon is either an emoji or an image URL.
type GroupIcon struct {
	Kind  IconKind `json:"type,omitempty"`
	Value string   `json:"value,omitempty"`
}

// IconFromImageURL classifies the server's overloaded imageUrl field.
func IconFromImageURL(raw string) GroupIcon {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return GroupIcon{}
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"), strings.HasPrefix(raw, "data:"):
		return GroupIcon{Kind: IconURL, Value: raw}
	default:
		return GroupIcon{Kind: IconEmoji, Value: raw}
	}
}

// Group is a set of members sharing expenses.
type Group struct {
	// ID is the server-assigned identifier.
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Roommates", "Trip").
	Name string `json:"name"`

	// Currency is the ISO code expenses in this group are recorded in.
	Currency string `json:"currency"`

	Icon GroupIcon `json:"icon"`

	// Members may be empty when the list endpoint omits them; the members
	// endpoint is authoritative.
	Members []Member `json:"members"`
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MemberName returns the display name for userID, or "Unknown".
func (g *Group) MemberName(userID string) string {
	for _, m := range g.Members {
		if m.UserID == userID && m.Name != "" {
			return m.Name
		}
	}
	return "Unknown"
}

// GroupDetails is a group together with its separately fetched members and
// expense history. A nil Expenses slice means the history could not be loaded.
type GroupDetails struct {
	Group
	Expenses []Expense `json:"expenses"`
}
