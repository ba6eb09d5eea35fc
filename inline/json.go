package inline

import (
	"encoding/json"

	"github.com/voicepages/voicepages/api"
)

type Book struct {
	api.Book
	// Characters are present when requested.
	Characters []api.Character `json:"characters,omitempty"`
	// Bookmark is the server resume point, when requested and present.
	Bookmark *api.Bookmark `json:"bookmark,omitempty"`
}

type Output struct {
	Query  string  `json:"query"`
	Result []*Book `json:"result"`
}

func asJson(books []*Book, query string) ([]byte, error) {
	if books == nil {
		books = []*Book{}
	}

	return json.Marshal(&Output{
		Query:  query,
		Result: books,
	})
}
