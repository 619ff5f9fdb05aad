package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"knowledge/internal/domain/models"
	"knowledge/internal/topicpath"
)

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printNotes(w io.Writer, notes []models.Note, topics []models.Topic) {
	for _, n := range notes {
		star := " "
		if n.Favorite() {
			star = "*"
		}
		topic := ""
		if n.TopicID != nil {
			if p := topicpath.FullPath(topics, *n.TopicID); p != "" {
				topic = "  [" + p + "]"
			}
		}
		fmt.Fprintf(w, "%s %s  %s%s\n", star, n.ID, n.Title, topic)
	}
}

func printNote(w io.Writer, n models.Note, topics []models.Topic) {
	fmt.Fprintf(w, "id:       %s\n", n.ID)
	fmt.Fprintf(w, "title:    %s\n", n.Title)
	if n.TopicID != nil {
		fmt.Fprintf(w, "topic:    %s\n", topicpath.FullPath(topics, *n.TopicID))
	}
	if n.URL != "" {
		fmt.Fprintf(w, "url:      %s\n", n.URL)
	}
	fmt.Fprintf(w, "favorite: %t\n", n.Favorite())
	fmt.Fprintf(w, "updated:  %s\n", n.UpdatedAt.Local().Format("2006-01-02 15:04"))
	for _, a := range n.Attachments {
		fmt.Fprintf(w, "attached: %s (%s, %d bytes)\n", a.Name, a.MimeType, a.Size)
	}
	if n.Text != "" {
		fmt.Fprintf(w, "\n%s\n", n.Text)
	}
}

func printTree(w io.Writer, nodes []*models.TopicTreeNode, depth int) {
	for _, node := range nodes {
		fmt.Fprintf(w, "%s%s (%d)\n", strings.Repeat("  ", depth), node.Name, node.NoteCount)
		printTree(w, node.Children, depth+1)
	}
}
