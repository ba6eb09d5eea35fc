package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"strings"
	"syscall"

	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/app"
	"github.com/voicepages/voicepages/filesystem"
	"github.com/voicepages/voicepages/inline"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/log"
	"github.com/voicepages/voicepages/playback"
)

func init() {
	rootCmd.AddCommand(inlineCmd)

	inlineCmd.Flags().StringP("query", "q", "", "Keep only the books whose title or author matches")
	inlineCmd.Flags().StringP("book", "b", "", "Criteria for selecting a single book from the library")
	inlineCmd.Flags().StringP("chapters", "C", "", "Criteria for selecting chapters of the selected books")
	inlineCmd.Flags().BoolP("characters", "c", false, "Include the characters of the selected books")
	inlineCmd.Flags().BoolP("bookmark", "m", false, "Include the server bookmark of the selected books")
	inlineCmd.Flags().BoolP("json", "j", false, "Format the command output as a JSON object")
	inlineCmd.Flags().StringP("output", "o", "", "Specify a file path to write the command output")

	lo.Must0(inlineCmd.RegisterFlagCompletionFunc("query", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		titles, _ := completionBooks(cmd, args, toComplete)
		return lo.Map(titles, func(s string, _ int) string {
			_, title, _ := strings.Cut(s, "\t")
			return title
		}), cobra.ShellCompDirectiveNoFileComp
	}))
}

// inlineCmd executes the application in non-interactive, scriptable inline mode.
var inlineCmd = &cobra.Command{
	Use:   "inline",
	Short: "Execute the application in non-interactive, scriptable inline mode",
	Long: `Query the library without any interaction, for scripts.

Book selectors:
  first - first book in the list
  last - last book in the list
  id:[book id] - the book with this id
  [number] - select book by index (starting from 0)

Chapter selectors:
  first - first chapter of the book
  last - last chapter of the book
  all - all chapters of the book
  [number] - the chapter with this number
  [from]-[to] - chapters by number range
  @[substring]@ - chapters by title substring

Without a chapter selector the plain output lists books, with one it lists chapters.`,
	Example: "  voicepages inline --book id:42 --chapters all --json",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			writer io.Writer = os.Stdout
			err    error
		)

		if output := lo.Must(cmd.Flags().GetString("output")); output != "" {
			file, err := filesystem.API().Create(output)
			handleErr(err)
			defer file.Close()
			writer = file
		}

		bookPicker := mo.None[inline.BookPicker]()
		if bookFlag := lo.Must(cmd.Flags().GetString("book")); bookFlag != "" {
			fn, err := inline.ParseBookPicker(bookFlag)
			handleErr(err)
			bookPicker = mo.Some(fn)
		}

		chaptersFilter := mo.None[inline.ChaptersFilter]()
		if chaptersFlag := lo.Must(cmd.Flags().GetString("chapters")); chaptersFlag != "" {
			fn, err := inline.ParseChaptersFilter(chaptersFlag)
			handleErr(err)
			chaptersFilter = mo.Some(fn)
		}

		options := &inline.Options{
			Out:            writer,
			Library:        app.NewClient(),
			Json:           lo.Must(cmd.Flags().GetBool("json")),
			Query:          lo.Must(cmd.Flags().GetString("query")),
			BookPicker:     bookPicker,
			ChaptersFilter: chaptersFilter,
			Characters:     lo.Must(cmd.Flags().GetBool("characters")),
			Bookmark:       lo.Must(cmd.Flags().GetBool("bookmark")),
		}

		ctx, cancel := longRequestContext()
		defer cancel()

		err = inline.Run(ctx, options)
		handleErr(err)
	},
}

func init() {
	inlineCmd.AddCommand(inlinePlayCmd)

	inlinePlayCmd.Flags().IntP("chapter", "n", 0, "Chapter to play, defaults to the bookmark or the first chapter")
}

// inlinePlayCmd plays a chapter without any interface.
var inlinePlayCmd = &cobra.Command{
	Use:               "play [book id]",
	Short:             "Play a chapter without any interface until it ends or is interrupted",
	Long:              "Play a chapter without any interface. Each status change is printed as a tab separated line.",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionBooks,
	Run: func(cmd *cobra.Command, args []string) {
		CheckDependencies()

		a, err := app.New()
		handleErr(err)
		defer func() {
			if err := a.Close(); err != nil {
				log.Warnf("close: %s", err)
			}
		}()

		bookID := args[0]

		reqCtx, cancel := requestContext()
		defer cancel()

		book, err := a.Client.Book(reqCtx, bookID)
		handleErr(err)
		a.Book(book)

		chapter := lo.Must(cmd.Flags().GetInt("chapter"))
		if chapter <= 0 {
			chapter = 1
			bookmark, err := a.Client.GetBookmark(reqCtx, bookID)
			if err != nil {
				log.Warnf("bookmark of %s: %s", bookID, err)
			} else if bm, ok := bookmark.Get(); ok && bm.Chapter > 0 {
				chapter = bm.Chapter
			}
		}

		policy, err := playback.ParseEndPolicy(viper.GetString(key.PlayerOnEnd))
		handleErr(err)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = inline.Play(ctx, a, a.Target(bookID, chapter), policy, cmd.OutOrStdout())
		if !errors.Is(err, context.Canceled) {
			handleErr(err)
		}
	},
}

func init() {
	inlineCmd.AddCommand(inlineSchemaCmd)

	inlineSchemaCmd.Flags().BoolP("voices", "v", false, "Generate the JSON Schema for the voice list")
}

// inlineSchemaCmd generates JSON schemas for structured inline mode outputs.
var inlineSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schemas for structured inline mode outputs",
	Run: func(cmd *cobra.Command, args []string) {
		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		reflector.Namer = func(t reflect.Type) string {
			name := t.Name()
			switch strings.ToLower(name) {
			case "book", "output":
				return filepath.Base(t.PkgPath()) + "." + name
			}

			return name
		}

		var schema *jsonschema.Schema

		switch {
		case lo.Must(cmd.Flags().GetBool("voices")):
			schema = reflector.Reflect([]api.Voice{})
		default:
			schema = reflector.Reflect(&inline.Output{})
		}

		handleErr(json.NewEncoder(os.Stdout).Encode(schema))
	},
}
