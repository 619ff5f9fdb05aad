package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"knowledge/internal/client/cache"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the local cache and print notes as other processes change it",
	Long: `Watch reloads the cached snapshot whenever another knowledge process
writes it and prints the cached notes. Only the file backend can be watched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			fs, ok := a.storage.(*cache.FileStorage)
			if !ok {
				return errors.New("watch needs the file state backend")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			changes, err := fs.Watch(ctx, cache.StateKey, a.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printNotes(out, a.store.Notes(), a.store.Topics())
			for range changes {
				a.store.Reload()
				fmt.Fprintf(out, "--- %d notes, %d topics\n", len(a.store.Notes()), len(a.store.Topics()))
				printNotes(out, a.store.Notes(), a.store.Topics())
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
