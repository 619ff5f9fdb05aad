package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"knowledge/internal/domain/models"
)

var (
	noteTitle   string
	noteText    string
	noteURL     string
	noteTopic   string
	noteFav     bool
	noteAttach  []string
	noteRmYes   bool
	noteLsJSON  bool
	noteShowRaw bool
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Create, edit and remove notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a note",
	Long: `Add creates a note under a topic. --topic takes a path such as
"Work/Projects/2024"; missing topics are created on the server first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		attachments, err := readAttachments(noteAttach)
		if err != nil {
			return err
		}
		return withApp(func(a *app) error {
			draft := models.NoteDraft{
				Title:       noteTitle,
				Text:        noteText,
				URL:         noteURL,
				Attachments: attachments,
			}
			if noteTopic != "" {
				if t, ok := findTopic(a.store, noteTopic); ok {
					draft.TopicID = &t.ID
				} else {
					draft.TopicPath = noteTopic
				}
			}
			if cmd.Flags().Changed("fav") {
				draft.IsFavorite = &noteFav
			}

			saved, err := a.engine.SaveNote(context.Background(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note saved: %s\n", saved.ID)
			return nil
		})
	},
}

var noteEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a cached note; unset flags keep their values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		attachments, err := readAttachments(noteAttach)
		if err != nil {
			return err
		}
		return withApp(func(a *app) error {
			current, ok := a.store.Note(args[0])
			if !ok {
				return fmt.Errorf("note %s is not cached (search for it first)", args[0])
			}

			draft := models.NoteDraft{
				ID:          current.ID,
				Title:       current.Title,
				Text:        current.Text,
				URL:         current.URL,
				ImageURL:    current.ImageURL,
				TopicID:     current.TopicID,
				Attachments: append(current.Attachments, attachments...),
				IsFavorite:  current.IsFavorite,
			}
			flags := cmd.Flags()
			if flags.Changed("title") {
				draft.Title = noteTitle
			}
			if flags.Changed("text") {
				draft.Text = noteText
			}
			if flags.Changed("url") {
				draft.URL = noteURL
			}
			if flags.Changed("fav") {
				draft.IsFavorite = &noteFav
			}
			if flags.Changed("topic") {
				draft.TopicID = nil
				if t, ok := findTopic(a.store, noteTopic); ok {
					draft.TopicID = &t.ID
				} else if noteTopic != "" {
					draft.TopicPath = noteTopic
				}
			}

			saved, err := a.engine.SaveNote(context.Background(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note updated: %s\n", saved.ID)
			return nil
		})
	},
}

var noteRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a cached note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			n, ok := a.store.Note(args[0])
			if !ok {
				return fmt.Errorf("note %s is not cached", args[0])
			}
			if !noteRmYes {
				confirmed, err := promptYesNo(fmt.Sprintf("Delete note %q? [y/N] ", n.Title))
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}
			if err := a.engine.DeleteNote(context.Background(), n.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note deleted: %s\n", n.ID)
			return nil
		})
	},
}

var noteFavCmd = &cobra.Command{
	Use:   "fav <id>",
	Short: "Toggle a note's favorite flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			n, err := a.engine.ToggleFavorite(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s favorite: %t\n", n.ID, n.Favorite())
			return nil
		})
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a cached note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			n, ok := a.store.Note(args[0])
			if !ok {
				return fmt.Errorf("note %s is not cached", args[0])
			}
			if noteShowRaw {
				return printJSON(cmd.OutOrStdout(), n)
			}
			printNote(cmd.OutOrStdout(), n, a.store.Topics())
			return nil
		})
	},
}

var noteLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List locally cached notes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			notes := a.store.Notes()
			if noteLsJSON {
				return printJSON(cmd.OutOrStdout(), notes)
			}
			printNotes(cmd.OutOrStdout(), notes, a.store.Topics())
			return nil
		})
	},
}

// readAttachments loads files as data URLs.
func readAttachments(paths []string) ([]models.Attachment, error) {
	var out []models.Attachment
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read attachment: %w", err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(p))
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		out = append(out, models.Attachment{
			Name:     filepath.Base(p),
			MimeType: mimeType,
			Size:     int64(len(data)),
			DataURL:  "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		})
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(noteCmd)
	noteCmd.AddCommand(noteAddCmd, noteEditCmd, noteRmCmd, noteFavCmd, noteShowCmd, noteLsCmd)

	for _, c := range []*cobra.Command{noteAddCmd, noteEditCmd} {
		c.Flags().StringVar(&noteTitle, "title", "", "Note title")
		c.Flags().StringVar(&noteText, "text", "", "Note body")
		c.Flags().StringVar(&noteURL, "url", "", "Link the note refers to")
		c.Flags().StringVarP(&noteTopic, "topic", "t", "", "Topic id or path")
		c.Flags().BoolVar(&noteFav, "fav", false, "Mark as favorite")
		c.Flags().StringSliceVarP(&noteAttach, "attach", "a", nil, "File to attach (repeatable)")
	}
	noteRmCmd.Flags().BoolVarP(&noteRmYes, "yes", "y", false, "Delete without asking")
	noteLsCmd.Flags().BoolVar(&noteLsJSON, "json", false, "Output in JSON format")
	noteShowCmd.Flags().BoolVar(&noteShowRaw, "json", false, "Output in JSON format")
}
