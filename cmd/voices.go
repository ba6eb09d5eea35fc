package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/app"
	"github.com/voicepages/voicepages/blob"
	"github.com/voicepages/voicepages/color"
	"github.com/voicepages/voicepages/icon"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/log"
	"github.com/voicepages/voicepages/player"
	"github.com/voicepages/voicepages/style"
	"github.com/voicepages/voicepages/util"
	"github.com/voicepages/voicepages/where"
)

const voiceSample = "The quick brown fox jumps over the lazy dog."

func init() {
	rootCmd.AddCommand(voicesCmd)
}

// voicesCmd groups the synthesis voice operations.
var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "Browse and try the voices of the server",
}

func init() {
	voicesCmd.AddCommand(voicesListCmd)
	voicesListCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	voicesListCmd.SetOut(os.Stdout)
}

var voicesListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List the available voices",
	Aliases: []string{"ls"},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := requestContext()
		defer cancel()

		voices := app.NewClient().VoicesOrFallback(ctx)

		if lo.Must(cmd.Flags().GetBool("json")) {
			printJson(cmd, voices)
			return
		}

		for _, v := range voices {
			details := lo.Filter([]string{v.Gender, v.Accent, v.Style}, func(s string, _ int) bool { return s != "" })
			cmd.Printf("%s %s %s\n", style.Fg(color.Purple)(v.ID), style.Bold(v.Name), style.Faint(util.Capitalize(strings.Join(details, ", "))))
		}
	},
}

func init() {
	voicesCmd.AddCommand(voicesTestCmd)
	voicesTestCmd.Flags().StringP("text", "t", voiceSample, "Text to narrate")
}

var voicesTestCmd = &cobra.Command{
	Use:   "test [voice id]",
	Short: "Narrate a sample with a voice",
	Args:  cobra.MaximumNArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return lo.Map(api.FallbackVoices, func(v api.Voice, _ int) string {
			return v.ID + "\t" + v.Name
		}), cobra.ShellCompDirectiveNoFileComp
	},
	Run: func(cmd *cobra.Command, args []string) {
		voiceID := api.DefaultVoice
		if len(args) == 1 {
			voiceID = args[0]
		}

		opener, err := player.New(viper.GetString(key.PlayerEngine))
		handleErr(err)

		ctx, cancel := longRequestContext()
		defer cancel()

		erase := util.PrintErasable(icon.Get(icon.Progress) + " Synthesizing...")
		audio, err := app.NewClient().TestVoice(ctx, lo.Must(cmd.Flags().GetString("text")), voiceID)
		erase()
		handleErr(err)

		ref, err := blob.NewStore(where.Temp()).Put(audio.Data, audio.ContentType)
		handleErr(err)
		defer func() {
			if err := ref.Release(); err != nil {
				log.Warnf("release sample: %s", err)
			}
		}()

		playCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		err = player.PlayOnce(playCtx, opener, ref.Path(), player.Options{
			Title:  voiceID,
			Rate:   viper.GetFloat64(key.PlayerSpeed),
			Volume: viper.GetFloat64(key.PlayerVolume),
		})
		if err != nil && playCtx.Err() == nil {
			handleErr(err)
		}
	},
}
