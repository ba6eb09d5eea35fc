// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/color"
	"github.com/voicepages/voicepages/constant"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/style"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.App + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	// register validates and adds a new configuration field to the global registry.
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		f := Field{Key: k, Value: v, Description: desc}
		Default[k] = f
		EnvExposed = append(EnvExposed, k)
	}

	register(key.ServerURL, constant.DefaultServerURL, "Base URL of the audiobook server")
	register(key.ServerTimeoutSeconds, 30, "Timeout for regular API requests, in seconds")
	register(key.ServerSynthesisTimeoutSeconds, 600, "Timeout for chapter audio synthesis, in seconds.\nSynthesis of a long chapter can take several minutes")
	register(key.PlayerEngine, "mpv", "Audio engine to use.\nAvailable options are: mpv, native")
	register(key.PlayerAutoplay, true, "Start playing a chapter as soon as it is opened in the reader")
	register(key.PlayerSpeed, 1.0, "Default playback speed, from 0.5 to 3.0")
	register(key.PlayerVolume, 1.0, "Default playback volume, from 0 to 1")
	register(key.PlayerPollIntervalMs, 200, "How often the playback position is refreshed, in milliseconds")
	register(key.PlayerSkipSeconds, 15, "Seconds to jump when skipping forward or backward")
	register(key.PlayerOnEnd, "stop", "What to do when a chapter ends.\nAvailable options are: stop, advance")
	register(key.BookmarkAuto, true, "Save a bookmark on pause and periodically while playing")
	register(key.BookmarkIntervalSeconds, 15, "How often the bookmark is saved while playing, in seconds")
	register(key.BookmarkRestoreThresholdSeconds, 5, "Resume from a bookmark only if it is past this many seconds")
	register(key.BookmarkQueueFailed, true, "Keep bookmarks the server could not store and send them again on the next run")
	register(key.CacheAudio, true, "Keep a local copy of chapter audio")
	register(key.CacheAudioTTLHours, 168, "How long cached chapter audio is kept, in hours")
	register(key.HistorySaveOnPlay, true, "Save listening history while playing")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.TUIItemSpacing, 1, "Spacing between items in the TUI")
	register(key.TUISearchPromptString, "> ", "Search prompt string to use")
	register(key.TUIShowChapterText, true, "Show chapter text above the player in the reader")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Enable automatic version check")
	register(key.MiniSearchLimit, 20, "Limit of books to show in mini mode prompts")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
