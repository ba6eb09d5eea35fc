package cmd

import (
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/app"
	"github.com/voicepages/voicepages/color"
	"github.com/voicepages/voicepages/icon"
	"github.com/voicepages/voicepages/internal/cache"
	"github.com/voicepages/voicepages/style"
)

func init() {
	rootCmd.AddCommand(charactersCmd)
}

// charactersCmd groups the operations on the speakers of a book.
var charactersCmd = &cobra.Command{
	Use:     "characters",
	Short:   "Manage the characters of a book and their voices",
	Aliases: []string{"chars"},
}

func init() {
	charactersCmd.AddCommand(charactersListCmd)
	charactersListCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	charactersListCmd.SetOut(os.Stdout)
}

var charactersListCmd = &cobra.Command{
	Use:               "list [book id]",
	Short:             "List the characters of a book with their voices",
	Aliases:           []string{"ls"},
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionBooks,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := requestContext()
		defer cancel()

		characters, err := app.NewClient().Characters(ctx, args[0])
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			printJson(cmd, characters)
			return
		}

		for _, c := range characters {
			name := c.Name
			if c.IsNarrator {
				name += " " + style.Faint("(narrator)")
			}
			voice := lo.Ternary(c.VoiceID == "", api.DefaultVoice, c.VoiceID)
			cmd.Printf("%s %s %s\n", icon.Get(icon.Voice), style.Bold(name), style.Fg(color.Purple)(voice))
		}
	},
}

func init() {
	charactersCmd.AddCommand(charactersVoiceCmd)
	charactersVoiceCmd.SetOut(os.Stdout)
}

var charactersVoiceCmd = &cobra.Command{
	Use:   "voice [book id] [character] [voice id]",
	Short: "Assign a voice to a character",
	Long: `Assign a voice to a character.
Cached audio of the book is dropped, since it was narrated with the old voice.`,
	Args: cobra.ExactArgs(3),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		switch len(args) {
		case 0:
			return completionBooks(cmd, args, toComplete)
		case 2:
			return lo.Map(api.FallbackVoices, func(v api.Voice, _ int) string {
				return v.ID + "\t" + v.Name
			}), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	Run: func(cmd *cobra.Command, args []string) {
		bookID, character, voiceID := args[0], args[1], args[2]

		ctx, cancel := requestContext()
		defer cancel()

		client := app.NewClient()
		handleErr(client.SetCharacterVoice(ctx, bookID, character, voiceID))
		handleErr(app.InvalidateAudio(cache.FromConfig(client.BaseURL()), bookID))

		cmd.Println(fmt.Sprintf("%s %s now speaks with %s",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Bold(character),
			style.Fg(color.Purple)(voiceID),
		))
	},
}
