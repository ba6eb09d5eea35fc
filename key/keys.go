// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// DefinedFieldsCount is the number of registered configuration fields.
const DefinedFieldsCount = 27

// Server Connection - these keys locate and authenticate against the audiobook server.
const (
	ServerURL                     = "server.url"
	ServerTimeoutSeconds          = "server.timeout_seconds"
	ServerSynthesisTimeoutSeconds = "server.synthesis_timeout_seconds"
)

// Audio Playback - these keys control the engine and the transport defaults every session inherits.
const (
	PlayerEngine         = "player.engine"
	PlayerAutoplay       = "player.autoplay"
	PlayerSpeed          = "player.speed"
	PlayerVolume         = "player.volume"
	PlayerPollIntervalMs = "player.poll_interval_ms"
	PlayerSkipSeconds    = "player.skip_seconds"
	PlayerOnEnd          = "player.on_end"
)

// Bookmarks - these keys govern periodic position persistence and resume behavior.
const (
	BookmarkAuto                    = "bookmark.auto"
	BookmarkIntervalSeconds         = "bookmark.interval_seconds"
	BookmarkRestoreThresholdSeconds = "bookmark.restore_threshold_seconds"
	BookmarkQueueFailed             = "bookmark.queue_failed"
)

// Audio Cache - these keys configure the local copy of synthesized chapter audio.
const (
	CacheAudio         = "cache.audio"
	CacheAudioTTLHours = "cache.audio_ttl_hours"
)

// History Tracking - these keys configure the persistence of listening state.
const (
	HistorySaveOnPlay = "history.save_on_play"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Terminal User Interface (TUI) - these keys define the primary interactive environment's styling and logic.
const (
	TUIItemSpacing        = "tui.item_spacing"
	TUISearchPromptString = "tui.search_prompt"
	TUIShowChapterText    = "tui.show_chapter_text"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)

// Mini Mode - these keys configure the prompt driven player.
const (
	MiniSearchLimit = "mini.search_limit"
)
