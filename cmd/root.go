// Package cmd implements the command-line interface of voicepages.
package cmd

import (
	"fmt"
	"os"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/app"
	"github.com/voicepages/voicepages/color"
	"github.com/voicepages/voicepages/constant"
	"github.com/voicepages/voicepages/icon"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/log"
	"github.com/voicepages/voicepages/player"
	"github.com/voicepages/voicepages/query"
	"github.com/voicepages/voicepages/style"
	"github.com/voicepages/voicepages/tui"
	"github.com/voicepages/voicepages/util"
	"github.com/voicepages/voicepages/version"
	"github.com/voicepages/voicepages/where"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, squares)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().String("server", "", "Base URL of the audiobook server")
	lo.Must0(viper.BindPFlag(key.ServerURL, rootCmd.PersistentFlags().Lookup("server")))

	rootCmd.PersistentFlags().StringP("engine", "E", "", "Audio engine to use (mpv or native)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("engine", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return player.Available, cobra.ShellCompDirectiveNoFileComp
	}))
	lo.Must0(viper.BindPFlag(key.PlayerEngine, rootCmd.PersistentFlags().Lookup("engine")))

	rootCmd.Flags().BoolP("continue", "c", false, "Resume the most recently heard chapter")
	rootCmd.Flags().BoolP("history", "H", false, "Open the listening history")
	rootCmd.Flags().StringP("book", "b", "", "Open a book by its id")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("book", completionBooks))
	rootCmd.MarkFlagsMutuallyExclusive("continue", "history", "book")

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify()
	})

	// Leftover sources of a previous run are no longer referenced by anyone.
	go func() {
		_ = util.Delete(where.Temp())
	}()
}

// rootCmd opens the full screen reader.
var rootCmd = &cobra.Command{
	Use:   constant.App,
	Short: "A terminal reader for audiobooks narrated by an audiobook server",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - Read along while your books are narrated"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		CheckDependencies()

		a, err := app.New()
		handleErr(err)
		defer func() {
			if err := a.Close(); err != nil {
				log.Warnf("close: %s", err)
			}
		}()

		options := tui.Options{
			Continue: lo.Must(cmd.Flags().GetBool("continue")),
			History:  lo.Must(cmd.Flags().GetBool("history")),
			BookID:   lo.Must(cmd.Flags().GetString("book")),
		}
		handleErr(tui.Run(a, &options))
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}

// completionBooks completes book ids from the books opened before.
func completionBooks(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return lo.Map(query.SuggestMany(toComplete), func(b query.Book, _ int) string {
		return b.ID + "\t" + b.Title
	}), cobra.ShellCompDirectiveNoFileComp
}
