package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/app"
	"github.com/voicepages/voicepages/auth"
	"github.com/voicepages/voicepages/color"
	"github.com/voicepages/voicepages/icon"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/player"
	"github.com/voicepages/voicepages/style"
)

// CheckDependencies verifies that the configured audio engine can run.
// The mpv engine needs 'mpv' in the system PATH; the native engine needs nothing.
func CheckDependencies() {
	if viper.GetString(key.PlayerEngine) == player.EngineNative {
		return
	}

	if !player.IsMPVAvailable() {
		printMissingDependencyError("mpv")
		os.Exit(1)
	}
}

func printMissingDependencyError(dep string) {
	var installCmd string
	switch runtime.GOOS {
	case "darwin":
		installCmd = "brew install mpv"
	case "linux":
		installCmd = "sudo apt install mpv"
	case "windows":
		installCmd = "scoop install mpv"
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(style.HiRed).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("The required dependency '%s' was not found in your PATH.", dep))

	suggestion := ""
	if installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(installCmd))
	}
	suggestion += fmt.Sprintf("\n\nOr use the built-in engine:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render("voicepages config set player.engine native"))

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.SetOut(os.Stdout)
}

// checkCmd reports whether everything needed for listening is in place.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the audio engine and the server connection",
	Run: func(cmd *cobra.Command, args []string) {
		ok := true
		report := func(passed bool, format string, a ...any) {
			mark := style.Fg(color.Green)(icon.Get(icon.Success))
			if !passed {
				ok = false
				mark = style.Fg(color.Red)(icon.Get(icon.Fail))
			}
			cmd.Printf("%s %s\n", mark, fmt.Sprintf(format, a...))
		}

		engine := viper.GetString(key.PlayerEngine)
		switch engine {
		case player.EngineNative:
			report(true, "engine %s is built in", engine)
		default:
			path, err := exec.LookPath("mpv")
			report(err == nil, "engine %s found at %s", engine, path)
		}

		server := viper.GetString(key.ServerURL)
		ctx, cancel := requestContext()
		defer cancel()
		health, err := app.NewClient().Health(ctx)
		if err != nil {
			report(false, "server %s: %s", server, err)
		} else {
			report(true, "server %s is %s", server, health.Status)
		}

		if auth.TokenOrEmpty(server) == "" {
			cmd.Println(style.Faint("no access token stored, requests are anonymous"))
		}

		if !ok {
			os.Exit(1)
		}
	},
}
