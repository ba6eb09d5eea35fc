package playback

// Status is the controller state.
//
//	┌───────┐ load  ┌─────────┐ OnLoad ┌────────┐  play   ┌─────────┐
//	│ Empty │──────▶│ Loading │───────▶│ Paused │────────▶│ Playing │
//	└───────┘       └─────────┘        └────────┘◀────────└─────────┘
//	    ▲                │                 │      pause/end     │
//	    │  load error    │                 │                    │
//	    └────────────────┴─────────────────┴────────────────────┘
//	                        stop / teardown
//
// Paused and Playing are the two Ready states: the engine has loaded and its
// duration is known. Only engine callbacks move between them.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusPaused
	StatusPlaying
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "Empty"
	case StatusLoading:
		return "Loading"
	case StatusPaused:
		return "Paused"
	case StatusPlaying:
		return "Playing"
	default:
		return "Unknown"
	}
}

// IsReady reports whether the engine has loaded.
func (s Status) IsReady() bool {
	return s == StatusPaused || s == StatusPlaying
}

// Event is an engine lifecycle transition. The set is closed.
type Event interface {
	event()
}

type (
	EventLoad      struct{}
	EventLoadError struct{ Err error }
	EventPlay      struct{}
	EventPause     struct{}
	EventStop      struct{}
	EventEnd       struct{}
)

func (EventLoad) event()      {}
func (EventLoadError) event() {}
func (EventPlay) event()      {}
func (EventPause) event()     {}
func (EventStop) event()      {}
func (EventEnd) event()       {}

// Target identifies a chapter.
type Target struct {
	BookID  string
	Chapter int
	Title   string
}

// IsZero reports whether no chapter is targeted.
func (t Target) IsZero() bool {
	return t.BookID == ""
}

// Same reports whether both targets name the same chapter, ignoring titles.
func (t Target) Same(other Target) bool {
	return t.BookID == other.BookID && t.Chapter == other.Chapter
}
