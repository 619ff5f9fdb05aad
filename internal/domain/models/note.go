package models

import (
	"strings"
	"time"
)

// Note is a user-authored record filed under at most one topic.
type Note struct {
	ID          string       `json:"id"`
	UserID      string       `json:"-"`
	Title       string       `json:"title"`
	Text        string       `json:"text"`
	URL         string       `json:"url,omitempty"`
	ImageURL    string       `json:"imageUrl,omitempty"` // Link preview image, if any
	TopicID     *string      `json:"topicId"`            // NULL = unfiled
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	IsFavorite  *bool        `json:"isFavorite,omitempty"` // nil = not stated by the editor
}

// Attachment is owned by exactly one note and dies with it.
type Attachment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	DataURL   string    `json:"dataUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// Favorite reports the favorite flag, treating an unset flag as false.
func (n *Note) Favorite() bool {
	return n.IsFavorite != nil && *n.IsFavorite
}

// SetFavorite stores the flag as an explicit value.
func (n *Note) SetFavorite(v bool) {
	n.IsFavorite = &v
}

// InTopic reports whether the note is filed under topicID.
func (n *Note) InTopic(topicID string) bool {
	return n.TopicID != nil && *n.TopicID == topicID
}

// Matches reports whether query occurs in the title or text, ignoring case.
// An empty query matches everything.
func (n *Note) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Text), q)
}

// Clone returns a deep copy so snapshots never share attachment slices or pointers.
func (n Note) Clone() Note {
	c := n
	if n.TopicID != nil {
		id := *n.TopicID
		c.TopicID = &id
	}
	if n.IsFavorite != nil {
		f := *n.IsFavorite
		c.IsFavorite = &f
	}
	if n.Attachments != nil {
		c.Attachments = make([]Attachment, len(n.Attachments))
		copy(c.Attachments, n.Attachments)
	}
	return c
}

// NoteDraft is what the editor hands over on save. TopicPath, when set, is
// resolved (and created) before the note is written.
type NoteDraft struct {
	ID          string
	Title       string
	Text        string
	URL         string
	ImageURL    string
	TopicID     *string
	TopicPath   string
	Attachments []Attachment
	IsFavorite  *bool
}

// FavoriteRequest is the body of PATCH /notes/{id}/favorite.
type FavoriteRequest struct {
	IsFavorite bool `json:"isFavorite"`
}
