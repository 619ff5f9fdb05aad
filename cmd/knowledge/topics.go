package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"knowledge/internal/client/state"
	"knowledge/internal/domain/models"
	"knowledge/internal/topicpath"
)

var (
	topicsMatch  string
	topicsYes    bool
	renameParent string
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Inspect and manage topics",
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached topics with their full paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			var topics []models.Topic
			if topicsMatch != "" {
				matched, err := a.store.TopicsMatching(topicsMatch)
				if err != nil {
					return err
				}
				topics = matched
			} else {
				topics = a.store.TopicsWithPaths()
			}
			for _, t := range topics {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", t.ID, t.Path)
			}
			return nil
		})
	},
}

var topicsTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show cached topics as a tree with cached note counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			printTree(cmd.OutOrStdout(), a.store.Tree(), 0)
			return nil
		})
	},
}

var topicsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replace cached topics with the server's",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.engine.LoadTopics(context.Background()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d topics\n", len(a.store.Topics()))
			return nil
		})
	},
}

var topicsEnsureCmd = &cobra.Command{
	Use:   "ensure <path>",
	Short: "Resolve a topic path on the server, creating missing topics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			id, err := a.engine.EnsureTopicPath(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var topicsRmCmd = &cobra.Command{
	Use:   "rm <id|path>",
	Short: "Delete a topic; its notes and subtopics are kept and detached",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			topic, ok := findTopic(a.store, args[0])
			if !ok {
				return fmt.Errorf("unknown topic %q", args[0])
			}
			if !topicsYes {
				path := topicpath.FullPath(a.store.Topics(), topic.ID)
				confirmed, err := promptYesNo(fmt.Sprintf("Delete topic %q? [y/N] ", path))
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}
			if err := a.engine.DeleteTopic(context.Background(), topic.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Topic deleted: %s\n", topic.ID)
			return nil
		})
	},
}

var topicsRenameCmd = &cobra.Command{
	Use:   "rename <id|path> <name>",
	Short: "Rename or move a cached topic",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			topic, ok := findTopic(a.store, args[0])
			if !ok {
				return fmt.Errorf("unknown topic %q", args[0])
			}

			parentID := topic.ParentID
			if cmd.Flags().Changed("parent") {
				parentID = nil
				if renameParent != "" {
					parent, ok := findTopic(a.store, renameParent)
					if !ok {
						return fmt.Errorf("unknown parent topic %q", renameParent)
					}
					parentID = &parent.ID
				}
			}

			if err := a.engine.RenameTopic(topic.ID, args[1], parentID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), topicpath.FullPath(a.store.Topics(), topic.ID))
			return nil
		})
	},
}

// findTopic looks a topic up by id, then by full path.
func findTopic(store *state.Store, ref string) (models.Topic, bool) {
	if t, ok := store.Topic(ref); ok {
		return t, true
	}
	path, err := topicpath.Normalize(ref)
	if err != nil {
		return models.Topic{}, false
	}
	for _, t := range store.TopicsWithPaths() {
		if t.Path == path {
			return t, true
		}
	}
	return models.Topic{}, false
}

func init() {
	rootCmd.AddCommand(topicsCmd)
	topicsCmd.AddCommand(topicsListCmd, topicsTreeCmd, topicsSyncCmd, topicsEnsureCmd, topicsRmCmd, topicsRenameCmd)

	topicsListCmd.Flags().StringVarP(&topicsMatch, "match", "m", "", "Only topics whose full path matches this glob (e.g. 'Work/**')")
	topicsRmCmd.Flags().BoolVarP(&topicsYes, "yes", "y", false, "Delete without asking")
	topicsRenameCmd.Flags().StringVar(&renameParent, "parent", "", "Move under this topic (id or path); empty moves to the root")
}
