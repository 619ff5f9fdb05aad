package models

import "time"

// Topic is a node of the topic forest. ParentID nil marks a root.
type Topic struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId"`
	Path      string    `json:"path,omitempty"` // Computed display path, not stored
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsChildOf reports whether the topic's parent is parentID.
func (t *Topic) IsChildOf(parentID *string) bool {
	if t.ParentID == nil || parentID == nil {
		return t.ParentID == nil && parentID == nil
	}
	return *t.ParentID == *parentID
}

// Clone returns a copy that does not share the parent pointer.
func (t Topic) Clone() Topic {
	c := t
	if t.ParentID != nil {
		p := *t.ParentID
		c.ParentID = &p
	}
	return c
}

// EnsurePathRequest is the body of POST /topics/ensure-path.
type EnsurePathRequest struct {
	Path string `json:"path"`
}

// EnsurePathResult carries the leaf id and only the topics that did not exist before.
type EnsurePathResult struct {
	TopicID       string  `json:"topicId"`
	CreatedTopics []Topic `json:"createdTopics"`
}

// TopicTreeNode is a topic with its nested children and note count.
type TopicTreeNode struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	ParentID  *string          `json:"parentId"`
	NoteCount int              `json:"noteCount"`
	Children  []*TopicTreeNode `json:"children"`
}
