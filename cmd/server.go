package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/app"
	"github.com/voicepages/voicepages/auth"
	"github.com/voicepages/voicepages/color"
	"github.com/voicepages/voicepages/icon"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/open"
	"github.com/voicepages/voicepages/style"
)

func init() {
	rootCmd.AddCommand(serverCmd)
}

// serverCmd groups the operations on the configured audiobook server.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Check and authenticate against the audiobook server",
}

func init() {
	serverCmd.AddCommand(serverHealthCmd)
	serverHealthCmd.SetOut(os.Stdout)
}

var serverHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Test the connection to the server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := requestContext()
		defer cancel()

		server := viper.GetString(key.ServerURL)
		health, err := app.NewClient().Health(ctx)
		handleErr(err)

		cmd.Printf("%s %s is %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(server),
			style.Bold(health.Status),
		)
	},
}

func init() {
	serverCmd.AddCommand(serverLoginCmd)
	serverLoginCmd.Flags().StringP("token", "t", "", "Access token, prompted for when omitted")
	serverLoginCmd.SetOut(os.Stdout)
}

var serverLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an access token for the server in the system keyring",
	Run: func(cmd *cobra.Command, args []string) {
		server := viper.GetString(key.ServerURL)

		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			handleErr(survey.AskOne(&survey.Password{
				Message: "Access token for " + server,
			}, &token, survey.WithValidator(survey.Required)))
		}

		token = strings.TrimSpace(token)
		if token == "" {
			handleErr(errors.New("empty token"))
		}

		handleErr(auth.SetToken(server, token))

		ctx, cancel := requestContext()
		defer cancel()
		if _, err := app.NewClient().Health(ctx); err != nil {
			cmd.Printf("%s token saved, but the server did not answer: %s\n", style.Fg(color.Yellow)(icon.Get(icon.Fail)), err)
			return
		}

		cmd.Printf("%s logged in to %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), style.Fg(color.Purple)(server))
	},
}

func init() {
	serverCmd.AddCommand(serverLogoutCmd)
	serverLogoutCmd.SetOut(os.Stdout)
}

var serverLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored access token of the server",
	Run: func(cmd *cobra.Command, args []string) {
		server := viper.GetString(key.ServerURL)
		handleErr(auth.DeleteToken(server))
		cmd.Printf("%s logged out of %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), style.Fg(color.Purple)(server))
	},
}

func init() {
	serverCmd.AddCommand(serverOpenCmd)
	serverOpenCmd.Flags().StringP("app", "a", "", "Application to open the page with instead of the default browser")
	serverOpenCmd.Flags().BoolP("wait", "w", false, "Wait until the application exits")
}

var serverOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the server web interface in the browser",
	Run: func(cmd *cobra.Command, args []string) {
		url := viper.GetString(key.ServerURL)
		with, _ := cmd.Flags().GetString("app")

		if wait, _ := cmd.Flags().GetBool("wait"); wait {
			handleErr(open.RunWith(url, with))
			return
		}
		handleErr(open.StartWith(url, with))
	},
}
