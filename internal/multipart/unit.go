package multipart

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StagedThumbnail is a thumbnail part written to disk.
type StagedThumbnail struct {
	Key         string
	ContentType string
	Path        string
	Size        int64
}

// Unit is one upload being assembled.
type Unit struct {
	ID        uuid.UUID
	Kind      Kind
	CreatedAt time.Time

	dir string

	mu          sync.Mutex
	received    map[PartName]struct{}
	parts       map[PartName][]byte
	recipients  []string
	payloadSize int64
	thumbnails  []StagedThumbnail
	complete    bool
}

// IsComplete reports whether every required part arrived.
func (u *Unit) IsComplete() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.complete
}

// Has reports whether the part arrived.
func (u *Unit) Has(name PartName) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.received[name]
	return ok
}

// Bytes returns an in-memory part, or nil.
func (u *Unit) Bytes(name PartName) []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.parts[name]
}

// Recipients returns the parsed recipients part.
func (u *Unit) Recipients() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.recipients...)
}

// PayloadSize is the number of payload bytes written so far.
func (u *Unit) PayloadSize() int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.payloadSize
}

// OpenPayload opens the staged payload for reading.
func (u *Unit) OpenPayload() (io.ReadCloser, error) {
	return os.Open(u.payloadPath())
}

// Thumbnails returns the staged thumbnails in arrival order.
func (u *Unit) Thumbnails() []StagedThumbnail {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]StagedThumbnail(nil), u.thumbnails...)
}

func (u *Unit) payloadPath() string {
	return filepath.Join(u.dir, string(PartPayload))
}
