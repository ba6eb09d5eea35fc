package icon

// Icon identifies a symbol in the registry.
type Icon int

const (
	Fail Icon = iota + 1
	Success
	Progress
	Link
	Mark
	Search
	Book
	Chapter
	Play
	Pause
	Stop
	Speed
	Volume
	Bookmark
	Voice
)

var icons = map[Icon]*iconDef{
	Fail: {
		emoji:   "💀",
		nerd:    "",
		plain:   "X",
		kaomoji: "(×﹏×)",
		squares: "🟥",
	},
	Success: {
		emoji:   "🎉",
		nerd:    "",
		plain:   "OK",
		kaomoji: "(ᵔ◡ᵔ)",
		squares: "🟩",
	},
	Progress: {
		emoji:   "⏳",
		nerd:    "",
		plain:   "...",
		kaomoji: "┐(´～`)┌",
		squares: "🟦",
	},
	Link: {
		emoji:   "🔗",
		nerd:    "",
		plain:   "->",
		kaomoji: "(・ω・)⊃",
		squares: "🟪",
	},
	Mark: {
		emoji:   "✅",
		nerd:    "",
		plain:   "*",
		kaomoji: "(◕‿◕)",
		squares: "🟩",
	},
	Search: {
		emoji:   "🔍",
		nerd:    "",
		plain:   "?",
		kaomoji: "(・_・ヾ",
		squares: "🟨",
	},
	Book: {
		emoji:   "📖",
		nerd:    "",
		plain:   "#",
		kaomoji: "φ(._.)",
		squares: "🟫",
	},
	Chapter: {
		emoji:   "📄",
		nerd:    "",
		plain:   "-",
		kaomoji: "(¬‿¬)",
		squares: "⬜",
	},
	Play: {
		emoji:   "▶️",
		nerd:    "",
		plain:   ">",
		kaomoji: "ヽ(°〇°)ﾉ",
		squares: "🟩",
	},
	Pause: {
		emoji:   "⏸️",
		nerd:    "",
		plain:   "||",
		kaomoji: "(－_－)",
		squares: "🟨",
	},
	Stop: {
		emoji:   "⏹️",
		nerd:    "",
		plain:   "[]",
		kaomoji: "(￣^￣)",
		squares: "🟥",
	},
	Speed: {
		emoji:   "⏩",
		nerd:    "",
		plain:   ">>",
		kaomoji: "ε=ε=(ノ≧∇≦)ノ",
		squares: "🟧",
	},
	Volume: {
		emoji:   "🔊",
		nerd:    "",
		plain:   "vol",
		kaomoji: "(°ロ°)",
		squares: "🟦",
	},
	Bookmark: {
		emoji:   "🔖",
		nerd:    "",
		plain:   "@",
		kaomoji: "(￣▽￣)ノ",
		squares: "🟪",
	},
	Voice: {
		emoji:   "🗣️",
		nerd:    "",
		plain:   "~",
		kaomoji: "(°▽°)/",
		squares: "🟧",
	},
}
