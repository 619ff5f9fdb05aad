// Package topicpath resolves slash-delimited topic paths ("Work/Projects/2024")
// to a chain of nested topics, creating the missing tail.
package topicpath

import (
	"context"
	"fmt"
	"strings"

	"knowledge/internal/config"
	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
)

// Separator delimits hierarchy levels in a topic path.
const Separator = "/"

// Authority is the source of truth the resolver walks. Lookups and creation
// must be exact on (name, parent); a nil parent means the root level.
type Authority interface {
	FindTopic(ctx context.Context, name string, parentID *string) (*models.Topic, error)
	CreateTopic(ctx context.Context, name string, parentID *string) (*models.Topic, error)
}

// Split breaks path into trimmed, non-empty segments. An empty result is a
// validation error.
func Split(path string) ([]string, error) {
	if len(path) > config.MaxTopicPathLength {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("topic path exceeds maximum length of %d", config.MaxTopicPathLength),
		}
	}

	var segments []string
	for _, part := range strings.Split(path, Separator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if len(part) > config.MaxTopicNameLength {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("topic name %q exceeds maximum length of %d", part, config.MaxTopicNameLength),
			}
		}
		segments = append(segments, part)
	}

	if len(segments) == 0 {
		return nil, &domain.ValidationError{Message: "invalid path"}
	}
	return segments, nil
}

// Join renders segments back to the canonical path form.
func Join(segments []string) string {
	return strings.Join(segments, Separator)
}

// Normalize returns the canonical form of path ("  a//b / c " -> "a/b/c").
func Normalize(path string) (string, error) {
	segments, err := Split(path)
	if err != nil {
		return "", err
	}
	return Join(segments), nil
}

// Resolve walks path top-down starting at the root. Existing (name, parent)
// topics are reused; missing ones are created under the current parent.
// The result holds the leaf id and only the newly created topics, in
// creation order.
//
// Resolve is idempotent for fully existing paths. It does not serialize
// concurrent callers; the authority must make (name, parent) unique.
func Resolve(ctx context.Context, authority Authority, path string) (*models.EnsurePathResult, error) {
	segments, err := Split(path)
	if err != nil {
		return nil, err
	}

	result := &models.EnsurePathResult{CreatedTopics: []models.Topic{}}
	var currentParentID *string

	for _, segment := range segments {
		topic, err := authority.FindTopic(ctx, segment, currentParentID)
		if err != nil {
			return nil, fmt.Errorf("find topic %q: %w", segment, err)
		}

		if topic == nil {
			topic, err = authority.CreateTopic(ctx, segment, currentParentID)
			if err != nil {
				return nil, fmt.Errorf("create topic %q: %w", segment, err)
			}
			result.CreatedTopics = append(result.CreatedTopics, *topic)
		}

		id := topic.ID
		currentParentID = &id
	}

	result.TopicID = *currentParentID
	return result, nil
}

// FullPath renders the path of topicID by following parent links through
// topics. Unknown ids yield "". A parent chain that loops is cut at the
// first repeated id.
func FullPath(topics []models.Topic, topicID string) string {
	byID := make(map[string]*models.Topic, len(topics))
	for i := range topics {
		byID[topics[i].ID] = &topics[i]
	}

	var names []string
	seen := make(map[string]bool)
	for id := topicID; id != ""; {
		t, ok := byID[id]
		if !ok || seen[id] {
			break
		}
		seen[id] = true
		names = append(names, t.Name)
		if t.ParentID == nil {
			break
		}
		id = *t.ParentID
	}

	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return Join(names)
}

// BuildTree nests a flat topic list. noteCounts is optional and keyed by topic id.
// Topics whose parent is unknown are promoted to roots.
func BuildTree(topics []models.Topic, noteCounts map[string]int) []*models.TopicTreeNode {
	nodes := make(map[string]*models.TopicTreeNode, len(topics))

	// First pass: create all nodes
	for _, t := range topics {
		nodes[t.ID] = &models.TopicTreeNode{
			ID:        t.ID,
			Name:      t.Name,
			ParentID:  t.ParentID,
			NoteCount: noteCounts[t.ID],
			Children:  []*models.TopicTreeNode{},
		}
	}

	// Second pass: connect children to parents
	roots := make([]*models.TopicTreeNode, 0)
	for _, t := range topics {
		node := nodes[t.ID]
		if t.ParentID != nil && *t.ParentID != t.ID {
			if parent, ok := nodes[*t.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	return roots
}
