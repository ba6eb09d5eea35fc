// Package cache keeps synthesized chapter audio on disk so chapters heard before start without a round trip.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/filesystem"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/log"
	"github.com/voicepages/voicepages/playback"
	"github.com/voicepages/voicepages/where"
)

// DefaultTTL is used when no lifetime is configured.
const DefaultTTL = 7 * 24 * time.Hour

const metaSuffix = ".json"

type meta struct {
	BookID      string `json:"book_id"`
	Chapter     int    `json:"chapter"`
	ContentType string `json:"content_type"`
}

// Audio is a disk cache of chapter audio for one server.
type Audio struct {
	dir    string
	server string
	ttl    time.Duration
}

var _ playback.AudioCache = (*Audio)(nil)

// New creates a cache in dir for the given server.
func New(dir, server string, ttl time.Duration) *Audio {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Audio{dir: dir, server: server, ttl: ttl}
}

// FromConfig returns the configured cache, or nil when audio caching is disabled.
func FromConfig(server string) *Audio {
	if !viper.GetBool(key.CacheAudio) {
		return nil
	}
	return New(where.Audio(), server, TTL())
}

// TTL returns the configured lifetime of cached audio.
func TTL() time.Duration {
	hours := viper.GetInt(key.CacheAudioTTLHours)
	if hours <= 0 {
		return DefaultTTL
	}
	return time.Duration(hours) * time.Hour
}

// Key generates a deterministic SHA-256 identifier for a chapter of a book on a server.
func Key(server, bookID string, chapter int) string {
	sanitized := strings.TrimRight(strings.ToLower(server), "/") + "\x00" + bookID + "\x00" + strconv.Itoa(chapter)
	hash := sha256.Sum256([]byte(sanitized))
	return hex.EncodeToString(hash[:])
}

func (a *Audio) path(bookID string, chapter int) string {
	return filepath.Join(a.dir, Key(a.server, bookID, chapter))
}

// Get returns cached audio that has not outlived the TTL.
func (a *Audio) Get(bookID string, chapter int) (api.Audio, bool) {
	path := a.path(bookID, chapter)
	fsys := filesystem.API()

	info, err := fsys.Stat(path)
	if err != nil || time.Since(info.ModTime()) > a.ttl {
		return api.Audio{}, false
	}

	data, err := fsys.ReadFile(path)
	if err != nil || len(data) == 0 {
		return api.Audio{}, false
	}

	var m meta
	if raw, err := fsys.ReadFile(path + metaSuffix); err == nil {
		_ = json.Unmarshal(raw, &m)
	}

	return api.Audio{Data: data, ContentType: m.ContentType}, true
}

// Put stores audio using an atomic file swap.
func (a *Audio) Put(bookID string, chapter int, audio api.Audio) error {
	path := a.path(bookID, chapter)
	fsys := filesystem.API()

	if err := fsys.MkdirAll(a.dir, 0o755); err != nil {
		return err
	}

	raw, err := json.Marshal(meta{BookID: bookID, Chapter: chapter, ContentType: audio.ContentType})
	if err != nil {
		return err
	}
	if err := fsys.WriteFile(path+metaSuffix, raw, 0o644); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := fsys.WriteFile(tmp, audio.Data, 0o644); err != nil {
		return err
	}
	return fsys.Rename(tmp, path)
}

// Invalidate removes the cached audio of every chapter of a book.
func (a *Audio) Invalidate(bookID string) error {
	fsys := filesystem.API()
	return walk(a.dir, func(path string, _ fs.FileInfo) error {
		if !strings.HasSuffix(path, metaSuffix) {
			return nil
		}

		raw, err := fsys.ReadFile(path)
		if err != nil {
			return nil
		}
		var m meta
		if json.Unmarshal(raw, &m) != nil || m.BookID != bookID {
			return nil
		}

		_ = fsys.Remove(strings.TrimSuffix(path, metaSuffix))
		return fsys.Remove(path)
	})
}

// CollectGarbage removes expired audio from dir in the background.
func CollectGarbage(dir string, ttl time.Duration) {
	go func() {
		if err := Prune(dir, ttl); err != nil {
			log.Debugf("prune audio cache: %s", err)
		}
	}()
}

// Prune removes files in dir older than ttl.
func Prune(dir string, ttl time.Duration) error {
	fsys := filesystem.API()
	return walk(dir, func(path string, info fs.FileInfo) error {
		if time.Since(info.ModTime()) > ttl {
			_ = fsys.Remove(path)
		}
		return nil
	})
}

func walk(dir string, fn func(path string, info fs.FileInfo) error) error {
	return afero.Walk(filesystem.API(), dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		return fn(path, info)
	})
}
