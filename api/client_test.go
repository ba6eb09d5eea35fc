package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func newTestServer(t *testing.T, mux *http.ServeMux) *Client {
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithHTTPClient(srv.Client()), WithToken("tok"))
}

func TestBooks(t *testing.T) {
	Convey("Given a server with two books", t, func() {
		mux := http.NewServeMux()
		var auth string
		mux.HandleFunc("GET /api/books", func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `[{"id":"b1","title":"Dune","author":"Herbert","chapter_count":3},{"id":"b2","title":"Emma","chapter_count":1}]`)
		})
		mux.HandleFunc("GET /api/books/b1", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"id":"b1","title":"Dune","chapters":[{"chapter_number":1,"title":"One"},{"chapter_number":2,"title":"Two"}]}`)
		})
		mux.HandleFunc("GET /api/books/b1/chapters/2", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"chapter_number":2,"title":"Two","text":"It was a dark night."}`)
		})
		mux.HandleFunc("DELETE /api/books/b2", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		client := newTestServer(t, mux)
		ctx := context.Background()

		Convey("Books lists them", func() {
			books, err := client.Books(ctx)
			So(err, ShouldBeNil)
			So(books, ShouldHaveLength, 2)
			So(books[0].String(), ShouldEqual, "Dune by Herbert")
			So(books[1].String(), ShouldEqual, "Emma")
			So(auth, ShouldEqual, "Bearer tok")
		})

		Convey("Book includes chapters", func() {
			book, err := client.Book(ctx, "b1")
			So(err, ShouldBeNil)
			So(book.Chapters, ShouldHaveLength, 2)
			So(book.Chapters[1].Number, ShouldEqual, 2)
		})

		Convey("Chapter returns the text", func() {
			ch, err := client.Chapter(ctx, "b1", 2)
			So(err, ShouldBeNil)
			So(ch.Text, ShouldStartWith, "It was")
		})

		Convey("DeleteBook accepts an empty response", func() {
			So(client.DeleteBook(ctx, "b2"), ShouldBeNil)
		})

		Convey("Unknown books report ErrNotFound with the body text", func() {
			_, err := client.Book(ctx, "missing")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "get book")
		})
	})
}

func TestAudio(t *testing.T) {
	Convey("Given a server with audio for chapter 1 only", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/books/b1/chapters/1/audio", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "audio/wav")
			_, _ = w.Write([]byte("RIFF...."))
		})
		mux.HandleFunc("GET /api/books/b1/chapters/2/audio", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Audio not generated", http.StatusNotFound)
		})
		mux.HandleFunc("POST /api/books/b1/chapters/2/audio", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "audio/wav")
			_, _ = w.Write([]byte("RIFFgen."))
		})
		var query url.Values
		mux.HandleFunc("POST /api/tts/generate", func(w http.ResponseWriter, r *http.Request) {
			query = r.URL.Query()
			_, _ = w.Write([]byte("RIFFtts."))
		})
		client := newTestServer(t, mux)
		ctx := context.Background()

		Convey("FetchAudio returns existing audio", func() {
			audio, err := client.FetchAudio(ctx, "b1", 1)
			So(err, ShouldBeNil)
			So(string(audio.Data), ShouldEqual, "RIFF....")
			So(audio.ContentType, ShouldEqual, "audio/wav")
		})

		Convey("FetchAudio reports ErrNoAudio when absent", func() {
			_, err := client.FetchAudio(ctx, "b1", 2)
			So(errors.Is(err, ErrNoAudio), ShouldBeTrue)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("GenerateAudio synthesizes", func() {
			audio, err := client.GenerateAudio(ctx, "b1", 2)
			So(err, ShouldBeNil)
			So(string(audio.Data), ShouldEqual, "RIFFgen.")
		})

		Convey("TestVoice escapes its query", func() {
			audio, err := client.TestVoice(ctx, "hello there", "am_adam")
			So(err, ShouldBeNil)
			So(audio.Data, ShouldNotBeEmpty)
			So(query.Get("text"), ShouldEqual, "hello there")
			So(query.Get("voice_id"), ShouldEqual, "am_adam")
		})
	})
}

func TestBookmark(t *testing.T) {
	Convey("Given a bookmark endpoint", t, func() {
		var (
			saved       Bookmark
			raw         string
			contentType string
		)
		stored := ""
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/books/b1/bookmark", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, stored)
		})
		mux.HandleFunc("POST /api/books/b1/bookmark", func(w http.ResponseWriter, r *http.Request) {
			contentType = r.Header.Get("Content-Type")
			body, _ := io.ReadAll(r.Body)
			raw = string(body)
			_ = json.Unmarshal(body, &saved)
		})
		mux.HandleFunc("GET /api/books/b2/bookmark", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
		client := newTestServer(t, mux)
		ctx := context.Background()

		Convey("An empty body means no bookmark", func() {
			stored = "null"
			bm, err := client.GetBookmark(ctx, "b1")
			So(err, ShouldBeNil)
			So(bm.IsAbsent(), ShouldBeTrue)
		})

		Convey("A 404 means no bookmark", func() {
			bm, err := client.GetBookmark(ctx, "b2")
			So(err, ShouldBeNil)
			So(bm.IsAbsent(), ShouldBeTrue)
		})

		Convey("A stored bookmark is decoded", func() {
			stored = `{"chapter_id":3,"position":150.0}`
			bm, err := client.GetBookmark(ctx, "b1")
			So(err, ShouldBeNil)
			value, ok := bm.Get()
			So(ok, ShouldBeTrue)
			So(value.Chapter, ShouldEqual, 3)
			So(value.Position, ShouldEqual, 150.0)
		})

		Convey("SaveBookmark posts snake_case fields", func() {
			err := client.SaveBookmark(ctx, "b1", Bookmark{Chapter: 3, Position: 42.5})
			So(err, ShouldBeNil)
			So(saved.Position, ShouldEqual, 42.5)
			So(contentType, ShouldEqual, "application/json")
			So(raw, ShouldContainSubstring, `"chapter_id":3`)
		})
	})
}

func TestCharactersAndVoices(t *testing.T) {
	Convey("Given characters and voices endpoints", t, func() {
		var name, body string
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/books/b1/characters", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[{"name":"Narrator","is_narrator":true},{"name":"Paul Atreides","voice_id":"am_adam"}]`)
		})
		mux.HandleFunc("PUT /api/books/b1/characters/{name}/voice", func(w http.ResponseWriter, r *http.Request) {
			name = r.PathValue("name")
			raw, _ := io.ReadAll(r.Body)
			body = strings.TrimSpace(string(raw))
		})
		mux.HandleFunc("GET /api/voices", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "", http.StatusInternalServerError)
		})
		client := newTestServer(t, mux)
		ctx := context.Background()

		Convey("Characters lists them", func() {
			chars, err := client.Characters(ctx, "b1")
			So(err, ShouldBeNil)
			So(chars[0].IsNarrator, ShouldBeTrue)
			So(chars[1].VoiceID, ShouldEqual, "am_adam")
		})

		Convey("SetCharacterVoice escapes the name", func() {
			So(client.SetCharacterVoice(ctx, "b1", "Paul Atreides", "bm_daniel"), ShouldBeNil)
			So(name, ShouldEqual, "Paul Atreides")
			So(body, ShouldEqual, `{"voice_id":"bm_daniel"}`)
		})

		Convey("Voices errors fall back to the built-in list", func() {
			_, err := client.Voices(ctx)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "HTTP 500")
			So(client.VoicesOrFallback(ctx), ShouldResemble, FallbackVoices)
		})
	})
}

func TestUpload(t *testing.T) {
	Convey("Upload sends a multipart file", t, func() {
		var filename, content string
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/books/upload", func(w http.ResponseWriter, r *http.Request) {
			file, header, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			filename = header.Filename
			raw, _ := io.ReadAll(file)
			content = string(raw)
			_, _ = io.WriteString(w, `{"id":"b9","title":"Dune","chapter_count":12}`)
		})
		client := newTestServer(t, mux)

		book, err := client.Upload(context.Background(), "/home/me/dune.epub", strings.NewReader("epub-bytes"))
		So(err, ShouldBeNil)
		So(book.ID, ShouldEqual, "b9")
		So(book.ChapterCount, ShouldEqual, 12)
		So(filename, ShouldEqual, "dune.epub")
		So(content, ShouldEqual, "epub-bytes")
	})
}
