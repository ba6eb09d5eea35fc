package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/app"
	"github.com/voicepages/voicepages/color"
	"github.com/voicepages/voicepages/filesystem"
	"github.com/voicepages/voicepages/history"
	"github.com/voicepages/voicepages/icon"
	"github.com/voicepages/voicepages/internal/cache"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/query"
	"github.com/voicepages/voicepages/style"
	"github.com/voicepages/voicepages/util"
)

// requestContext bounds a single server call made by a command.
func requestContext() (context.Context, context.CancelFunc) {
	timeout := time.Duration(viper.GetInt(key.ServerTimeoutSeconds)) * time.Second
	return context.WithTimeout(context.Background(), timeout)
}

// longRequestContext bounds uploads and synthesis.
func longRequestContext() (context.Context, context.CancelFunc) {
	timeout := time.Duration(viper.GetInt(key.ServerSynthesisTimeoutSeconds)) * time.Second
	return context.WithTimeout(context.Background(), timeout)
}

func printJson(cmd *cobra.Command, v any) {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	handleErr(encoder.Encode(v))
}

func init() {
	rootCmd.AddCommand(booksCmd)
}

// booksCmd groups the library operations.
var booksCmd = &cobra.Command{
	Use:     "books",
	Short:   "Manage the books of the server library",
	Aliases: []string{"book", "library"},
}

func init() {
	booksCmd.AddCommand(booksListCmd)
	booksListCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	booksListCmd.SetOut(os.Stdout)
}

var booksListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List the books of the library",
	Aliases: []string{"ls"},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := requestContext()
		defer cancel()

		books, err := app.NewClient().Books(ctx)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			printJson(cmd, books)
			return
		}

		if len(books) == 0 {
			cmd.Println(style.Faint("The library is empty"))
			return
		}

		for _, b := range books {
			cmd.Printf("%s %s %s\n",
				style.Fg(color.Yellow)(b.ID),
				style.Bold(b.String()),
				style.Faint(util.Quantify(b.ChapterCount, "chapter", "chapters")),
			)
		}
	},
}

func init() {
	booksCmd.AddCommand(booksInfoCmd)
	booksInfoCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	booksInfoCmd.SetOut(os.Stdout)
}

var booksInfoCmd = &cobra.Command{
	Use:               "info [book id]",
	Short:             "Show a book with its chapters and characters",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionBooks,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := requestContext()
		defer cancel()

		client := app.NewClient()
		book, err := client.Book(ctx, args[0])
		handleErr(err)
		handleErr(query.Remember(book.ID, book.Title, 1))

		characters, err := client.Characters(ctx, book.ID)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			printJson(cmd, struct {
				api.Book
				Characters []api.Character `json:"characters"`
			}{book, characters})
			return
		}

		cmd.Println(style.Title(book.String()))
		cmd.Println()
		for _, c := range book.Chapters {
			cmd.Printf("  %s %s\n", style.Fg(color.Yellow)(fmt.Sprintf("%3d", c.Number)), c.Title)
		}

		if len(characters) > 0 {
			cmd.Println()
			for _, c := range characters {
				voice := lo.Ternary(c.VoiceID == "", api.DefaultVoice, c.VoiceID)
				cmd.Printf("  %s %s %s\n", icon.Get(icon.Voice), c.Name, style.Faint(voice))
			}
		}

		last, err := history.Get()
		if err == nil {
			if entry, ok := last[book.ID]; ok {
				cmd.Println()
				cmd.Printf("%s %s\n", icon.Get(icon.Bookmark), style.Faint(entry.String()))
			}
		}
	},
}

func init() {
	booksCmd.AddCommand(booksUploadCmd)
	booksUploadCmd.SetOut(os.Stdout)
}

var booksUploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload an ebook to the library",
	Long:  "Upload an ebook to the library. The server extracts its chapters and characters.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]

		file, err := filesystem.API().Open(path)
		handleErr(err)
		defer util.Ignore(file.Close)

		info, err := file.Stat()
		handleErr(err)

		ctx, cancel := longRequestContext()
		defer cancel()

		erase := util.PrintErasable(fmt.Sprintf("%s Uploading %s (%s)...", icon.Get(icon.Progress), filepath.Base(path), humanize.Bytes(uint64(info.Size()))))
		book, err := app.NewClient().Upload(ctx, filepath.Base(path), file)
		erase()
		handleErr(err)
		handleErr(query.Remember(book.ID, book.Title, 1))

		cmd.Printf("%s uploaded %s as %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Bold(book.String()),
			style.Fg(color.Yellow)(book.ID),
		)
	},
}

func init() {
	booksCmd.AddCommand(booksDeleteCmd)
	booksDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	booksDeleteCmd.SetOut(os.Stdout)
}

var booksDeleteCmd = &cobra.Command{
	Use:               "delete [book id]",
	Short:             "Delete a book from the library",
	Aliases:           []string{"rm", "remove"},
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionBooks,
	Run: func(cmd *cobra.Command, args []string) {
		bookID := args[0]

		if !lo.Must(cmd.Flags().GetBool("yes")) {
			var confirmed bool
			handleErr(survey.AskOne(&survey.Confirm{
				Message: fmt.Sprintf("Delete %s from the library?", bookID),
				Default: false,
			}, &confirmed))
			if !confirmed {
				return
			}
		}

		ctx, cancel := requestContext()
		defer cancel()

		client := app.NewClient()
		handleErr(client.DeleteBook(ctx, bookID))
		handleErr(app.InvalidateAudio(cache.FromConfig(client.BaseURL()), bookID))
		handleErr(history.Remove(bookID))

		cmd.Printf("%s deleted %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), style.Fg(color.Yellow)(bookID))
	},
}
