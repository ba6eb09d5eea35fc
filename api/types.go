package api

import "fmt"

// Book is a single uploaded ebook.
type Book struct {
	ID           string           `json:"id" jsonschema:"description=Server assigned book identifier"`
	Title        string           `json:"title"`
	Author       string           `json:"author,omitempty"`
	FileType     string           `json:"file_type,omitempty"`
	ChapterCount int              `json:"chapter_count"`
	Chapters     []ChapterSummary `json:"chapters,omitempty"`
}

// String returns the title, followed by the author when known.
func (b Book) String() string {
	if b.Author == "" {
		return b.Title
	}
	return fmt.Sprintf("%s by %s", b.Title, b.Author)
}

// ChapterSummary is a chapter entry as listed in a book.
type ChapterSummary struct {
	Number int    `json:"chapter_number"`
	Title  string `json:"title"`
}

// Chapter is a chapter with its full text.
type Chapter struct {
	Number int    `json:"chapter_number"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}

// Character is a speaker detected in a book.
type Character struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Gender     string `json:"gender,omitempty"`
	VoiceID    string `json:"voice_id,omitempty"`
	IsNarrator bool   `json:"is_narrator,omitempty"`
}

// Voice is a synthesis voice offered by the server.
type Voice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender,omitempty"`
	Accent string `json:"accent,omitempty"`
	Style  string `json:"style,omitempty"`
}

// Bookmark is the persisted resume point of a book.
type Bookmark struct {
	Chapter  int     `json:"chapter_id"`
	Position float64 `json:"position"`
}

// Audio is an encoded audio payload returned by the server.
type Audio struct {
	Data        []byte
	ContentType string
}

// Health is the server health report.
type Health struct {
	Status string `json:"status"`
}

// DefaultVoice is used for characters without an assigned voice.
const DefaultVoice = "af_sky"

// FallbackVoices is offered when the server cannot list its voices.
var FallbackVoices = []Voice{
	{ID: "af_sky", Name: "Sky", Gender: "female", Accent: "american", Style: "calm"},
	{ID: "am_adam", Name: "Adam", Gender: "male", Accent: "american", Style: "deep"},
	{ID: "af_bella", Name: "Bella", Gender: "female", Accent: "american", Style: "bright"},
	{ID: "bm_daniel", Name: "Daniel", Gender: "male", Accent: "british", Style: "warm"},
}
