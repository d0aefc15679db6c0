package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/liaptui/liaptui/internal/eventlog"
	"github.com/liaptui/liaptui/internal/fileutil"
	"github.com/liaptui/liaptui/internal/protocol"
)

// ArchiveSink receives the retained event stream of a room being torn
// down. Implementations must not block for long; teardown waits on them.
type ArchiveSink interface {
	ArchiveRoom(summary protocol.RoomSummary, events []eventlog.Event) error
}

// archiveHeader is the first line of an archive file
type archiveHeader struct {
	RoomCode   string    `json:"room_code"`
	HostName   string    `json:"host_name"`
	Started    bool      `json:"started"`
	EventCount int       `json:"event_count"`
	ArchivedAt time.Time `json:"archived_at"`
}

// JSONLArchive writes one file per room under a directory: a header line
// followed by one event per line. Files land atomically so a reader never
// sees a half-written archive.
type JSONLArchive struct {
	dir string
}

// NewJSONLArchive creates the archive directory if needed. An empty dir
// disables archiving and returns a nil sink.
func NewJSONLArchive(dir string) (*JSONLArchive, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &JSONLArchive{dir: dir}, nil
}

// ArchiveRoom writes the room's event stream as JSON lines
func (a *JSONLArchive) ArchiveRoom(summary protocol.RoomSummary, events []eventlog.Event) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	header := archiveHeader{
		RoomCode:   summary.RoomCode,
		HostName:   summary.HostName,
		Started:    summary.Started,
		EventCount: len(events),
		ArchivedAt: time.Now().UTC(),
	}
	if err := enc.Encode(header); err != nil {
		return err
	}
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}

	name := fmt.Sprintf("%s-%d.jsonl", summary.RoomCode, header.ArchivedAt.UnixMilli())
	return fileutil.WriteFileAtomic(filepath.Join(a.dir, name), buf.Bytes(), 0o644)
}
