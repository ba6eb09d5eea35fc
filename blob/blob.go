// Package blob materializes fetched audio as temporary files that engines can open by path.
package blob

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/voicepages/voicepages/filesystem"
	"github.com/voicepages/voicepages/log"
)

// Store creates references under a single directory and tracks how many are live.
type Store struct {
	dir  string
	live atomic.Int64
}

// NewStore returns a store writing into dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Ref is a temporary local reference to audio bytes.
// It must be released exactly once; further releases are no-ops.
type Ref struct {
	path  string
	size  int64
	store *Store
	once  sync.Once
	err   error
}

// Put writes data to a new unique file and returns its reference.
func (s *Store) Put(data []byte, contentType string) (*Ref, error) {
	name, err := randomName()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, name+extension(contentType))
	if err := filesystem.API().WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write audio source: %w", err)
	}

	s.live.Add(1)
	return &Ref{path: path, size: int64(len(data)), store: s}, nil
}

// Live returns the number of references that have not been released.
func (s *Store) Live() int {
	return int(s.live.Load())
}

// Path returns the file path of the reference.
func (r *Ref) Path() string {
	return r.path
}

// Size returns the number of bytes behind the reference.
func (r *Ref) Size() int64 {
	return r.size
}

// Release deletes the backing file. Only the first call has an effect.
func (r *Ref) Release() error {
	if r == nil {
		return nil
	}

	r.once.Do(func() {
		r.store.live.Add(-1)
		if err := filesystem.API().Remove(r.path); err != nil {
			r.err = fmt.Errorf("release audio source: %w", err)
			log.Warn(r.err)
		}
	})
	return r.err
}

func randomName() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate source name: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

func extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".wav"
	}

	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac":
		return ".flac"
	default:
		return ".wav"
	}
}
