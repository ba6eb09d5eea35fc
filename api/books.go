package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/voicepages/voicepages/util"
)

// Books lists every uploaded book.
func (c *Client) Books(ctx context.Context) ([]Book, error) {
	var books []Book
	if err := c.doJSON(ctx, http.MethodGet, "/api/books", "list books", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// Book returns a book with its chapter list.
func (c *Client) Book(ctx context.Context, bookID string) (Book, error) {
	var book Book
	err := c.doJSON(ctx, http.MethodGet, bookPath(bookID), "get book", nil, &book)
	return book, err
}

// DeleteBook removes a book and everything generated for it.
func (c *Client) DeleteBook(ctx context.Context, bookID string) error {
	return c.doJSON(ctx, http.MethodDelete, bookPath(bookID), "delete book", nil, nil)
}

// Chapter returns the text of a chapter.
func (c *Client) Chapter(ctx context.Context, bookID string, chapter int) (Chapter, error) {
	var ch Chapter
	err := c.doJSON(ctx, http.MethodGet, chapterPath(bookID, chapter), "get chapter", nil, &ch)
	return ch, err
}

// Characters lists the characters detected in a book.
func (c *Client) Characters(ctx context.Context, bookID string) ([]Character, error) {
	var characters []Character
	if err := c.doJSON(ctx, http.MethodGet, bookPath(bookID)+"/characters", "list characters", nil, &characters); err != nil {
		return nil, err
	}
	return characters, nil
}

// SetCharacterVoice assigns a voice to a character.
func (c *Client) SetCharacterVoice(ctx context.Context, bookID, name, voiceID string) error {
	path := fmt.Sprintf("%s/characters/%s/voice", bookPath(bookID), url.PathEscape(name))
	body := struct {
		VoiceID string `json:"voice_id"`
	}{voiceID}
	return c.doJSON(ctx, http.MethodPut, path, "set character voice", body, nil)
}

// Upload sends an ebook file to the server as multipart form field "file".
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (Book, error) {
	const op = "upload book"

	ctx, cancel := context.WithTimeout(ctx, c.synthesisTimeout)
	defer cancel()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(filename))
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/books/upload", pr)
	if err != nil {
		return Book{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.do(req, op)
	if err != nil {
		return Book{}, err
	}
	defer util.Ignore(resp.Body.Close)

	var book Book
	if err := decodeJSON(resp.Body, &book); err != nil {
		return Book{}, fmt.Errorf("%s: decode: %w", op, err)
	}
	return book, nil
}

func bookPath(bookID string) string {
	return "/api/books/" + url.PathEscape(bookID)
}

func chapterPath(bookID string, chapter int) string {
	return fmt.Sprintf("%s/chapters/%d", bookPath(bookID), chapter)
}
