package multipart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/peertransfer/internal/errors"
	"github.com/allisson/peertransfer/internal/validation"
)

const (
	chunkSize = 32 * 1024

	// DefaultMaxMemoryPartBytes bounds instructions, recipients, header and metadata parts.
	DefaultMaxMemoryPartBytes = 1 << 20
)

// Assembler tracks upload units and writes their parts.
type Assembler struct {
	dir                string
	maxMemoryPartBytes int64

	mu    sync.Mutex
	units map[uuid.UUID]*Unit
}

// NewAssembler creates an Assembler staging files under dir.
func NewAssembler(dir string) *Assembler {
	return &Assembler{
		dir:                dir,
		maxMemoryPartBytes: DefaultMaxMemoryPartBytes,
		units:              make(map[uuid.UUID]*Unit),
	}
}

// Create registers a new unit of the given kind and prepares its staging directory.
func (a *Assembler) Create(kind Kind) (uuid.UUID, error) {
	id := uuid.Must(uuid.NewV7())
	dir := filepath.Join(a.dir, id.String())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to create staging directory")
	}

	a.mu.Lock()
	a.units[id] = &Unit{
		ID:        id,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		dir:       dir,
		received:  make(map[PartName]struct{}),
		parts:     make(map[PartName][]byte),
	}
	a.mu.Unlock()

	return id, nil
}

// Get returns the unit, or nil when unknown.
func (a *Assembler) Get(id uuid.UUID) *Unit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.units[id]
}

// Remove forgets the unit and deletes its staged files.
func (a *Assembler) Remove(id uuid.UUID) error {
	a.mu.Lock()
	unit, ok := a.units[id]
	delete(a.units, id)
	a.mu.Unlock()

	if !ok {
		return nil
	}
	if err := os.RemoveAll(unit.dir); err != nil {
		return apperrors.Wrap(err, "failed to remove staging directory")
	}
	return nil
}

// AddPart writes a part and returns true exactly once: when the last required part
// arrives. Parts may arrive in any order. Thumbnails never complete a unit.
func (a *Assembler) AddPart(ctx context.Context, id uuid.UUID, name PartName, r io.Reader) (bool, error) {
	if name == PartThumbnail {
		return false, a.AddThumbnail(ctx, id, "", "", r)
	}

	unit := a.Get(id)
	if unit == nil {
		return false, ErrUnitNotFound
	}
	if !unit.Kind.Accepts(name) {
		return false, apperrors.Wrapf(ErrPartNotExpected, "%s in %s", name, unit.Kind.Name)
	}

	unit.mu.Lock()
	defer unit.mu.Unlock()

	if _, dup := unit.received[name]; dup {
		return false, apperrors.Wrapf(ErrDuplicatePart, "%s", name)
	}

	switch {
	case name.streamed():
		n, err := appendToFile(ctx, unit.payloadPath(), r)
		if err != nil {
			return false, err
		}
		unit.payloadSize += n
	case name == PartRecipients:
		data, err := a.readLimited(r)
		if err != nil {
			return false, err
		}
		recipients, err := parseRecipients(data)
		if err != nil {
			return false, err
		}
		unit.recipients = recipients
		unit.parts[name] = data
	default:
		data, err := a.readLimited(r)
		if err != nil {
			return false, err
		}
		unit.parts[name] = data
	}

	unit.received[name] = struct{}{}
	if unit.complete || len(unit.received) < unit.Kind.Threshold() {
		return false, nil
	}
	unit.complete = true
	return true, nil
}

// AddThumbnail streams a thumbnail to disk. An empty key is replaced by the
// thumbnail's position.
func (a *Assembler) AddThumbnail(ctx context.Context, id uuid.UUID, key, contentType string, r io.Reader) error {
	unit := a.Get(id)
	if unit == nil {
		return ErrUnitNotFound
	}

	unit.mu.Lock()
	defer unit.mu.Unlock()

	index := len(unit.thumbnails)
	if key == "" {
		key = fmt.Sprintf("%d", index)
	}
	path := filepath.Join(unit.dir, fmt.Sprintf("%s-%d", PartThumbnail, index))

	n, err := appendToFile(ctx, path, r)
	if err != nil {
		return err
	}
	unit.thumbnails = append(unit.thumbnails, StagedThumbnail{
		Key:         key,
		ContentType: contentType,
		Path:        path,
		Size:        n,
	})
	return nil
}

func (a *Assembler) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, a.maxMemoryPartBytes+1))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read part")
	}
	if int64(len(data)) > a.maxMemoryPartBytes {
		return nil, ErrPartTooLarge
	}
	return data, nil
}

func parseRecipients(data []byte) ([]string, error) {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "recipients must be a list of identities")
	}

	recipients := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		identity := validation.NormalizeIdentity(r)
		if !validation.IsIdentity(identity) {
			return nil, apperrors.Wrapf(ErrInvalidRecipient, "%q", r)
		}
		if _, dup := seen[identity]; dup {
			continue
		}
		seen[identity] = struct{}{}
		recipients = append(recipients, identity)
	}

	if len(recipients) == 0 {
		return nil, ErrNoRecipientsSpecified
	}
	return recipients, nil
}

// appendToFile copies r to path in fixed size chunks, stopping early when ctx is done.
// On failure the file is truncated back to its prior length so a retried part
// starts from a clean offset.
func appendToFile(ctx context.Context, path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to open staged part")
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return 0, apperrors.Wrap(err, "failed to stat staged part")
	}
	offset := info.Size()

	written, err := copyChunks(ctx, f, r)
	if err != nil {
		if truncErr := f.Truncate(offset); truncErr != nil {
			err = apperrors.Join(err, apperrors.Wrap(truncErr, "failed to truncate staged part"))
		}
		_ = f.Close()
		return 0, err
	}

	if err := f.Close(); err != nil {
		return written, apperrors.Wrap(err, "failed to close staged part")
	}
	return written, nil
}

func copyChunks(ctx context.Context, w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return written, apperrors.Wrap(err, "failed to write staged part")
			}
			written += int64(n)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, apperrors.Wrap(readErr, "failed to read part")
		}
	}
}
