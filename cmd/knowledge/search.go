package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"knowledge/internal/domain/models"
)

var (
	searchTopic string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search notes on the server",
	Long: `Search runs a case-insensitive text search over note titles and bodies.
With --topic it browses a topic instead; the query may then be empty.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			ctx := context.Background()
			a.search.SetQuery(strings.Join(args, " "))

			var err error
			if searchTopic != "" {
				topic, ok := findTopic(a.store, searchTopic)
				if !ok {
					return fmt.Errorf("unknown topic %q (run 'knowledge topics sync')", searchTopic)
				}
				a.search.SetMode(models.SearchModeTopics)
				err = a.search.SelectTopic(ctx, &topic.ID)
			} else {
				err = a.search.Search(ctx)
			}
			if err != nil {
				return err
			}

			results := a.store.Results()
			if searchJSON {
				return printJSON(cmd.OutOrStdout(), results)
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no notes found")
				return nil
			}
			printNotes(cmd.OutOrStdout(), results, a.store.Topics())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchTopic, "topic", "t", "", "Browse a topic by id or path")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
}
