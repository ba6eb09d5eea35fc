// Package cmd implements the command-line interface of voicepages.
package cmd

import (
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/voicepages/voicepages/app"
	"github.com/voicepages/voicepages/log"
	"github.com/voicepages/voicepages/mini"
)

func init() {
	rootCmd.AddCommand(miniCmd)

	miniCmd.Flags().BoolP("continue", "c", false, "Resume the most recently heard chapter")
	miniCmd.Flags().StringP("book", "b", "", "Open a book by its id")
	lo.Must0(miniCmd.RegisterFlagCompletionFunc("book", completionBooks))
	miniCmd.MarkFlagsMutuallyExclusive("continue", "book")
}

// miniCmd launches the application in a lightweight, minimalist terminal interface.
var miniCmd = &cobra.Command{
	Use:   "mini",
	Short: "Launch the application in a lightweight, minimalist terminal interface",
	Long:  `Select a book and a chapter with prompts, then control the player by typing commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		CheckDependencies()

		a, err := app.New()
		handleErr(err)
		defer func() {
			if err := a.Close(); err != nil {
				log.Warnf("close: %s", err)
			}
		}()

		options := mini.Options{
			Continue: lo.Must(cmd.Flags().GetBool("continue")),
			BookID:   lo.Must(cmd.Flags().GetString("book")),
		}
		handleErr(mini.Run(a, &options))
	},
}
