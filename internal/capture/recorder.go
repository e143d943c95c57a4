// Package capture persists raw wire traffic for offline inspection. Each
// recording session produces a directory with a compressed journal of frame
// metadata, the raw frame bytes, and a manifest describing the layout.
package capture

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

var sessionNameCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Direction tells which way a recorded frame travelled.
type Direction string

const (
	DirectionInbound  Direction = "in"
	DirectionOutbound Direction = "out"
)

// Link names the connection a frame belongs to.
type Link string

const (
	LinkSession Link = "session"
	LinkRelay   Link = "relay"
)

// Manifest describes the capture bundle layout so tooling can locate
// artefacts.
type Manifest struct {
	Version     int    `json:"version"`
	CreatedAt   string `json:"created_at"`
	JournalPath string `json:"journal_path"`
	FramesPath  string `json:"frames_path"`
}

// journalRecord is one JSONL line in the compressed journal. Frame bytes live
// in the frames stream, located by sequence number.
type journalRecord struct {
	Seq        uint64 `json:"seq"`
	CapturedAt string `json:"captured_at"`
	Direction  string `json:"direction"`
	Link       string `json:"link"`
	Size       int    `json:"size"`
}

// Recorder streams captured frames to disk. Safe for concurrent use.
type Recorder struct {
	mu            sync.Mutex
	dir           string
	now           func() time.Time
	seq           uint64
	journalFile   *os.File
	journalStream *snappy.Writer
	frameFile     *os.File
	frameStream   *zstd.Encoder
}

// NewRecorder prepares the capture directory and opens compressed sinks. The
// session name only influences the directory name.
func NewRecorder(root, sessionName string, clock func() time.Time) (*Recorder, Manifest, error) {
	if root == "" {
		return nil, Manifest{}, fmt.Errorf("capture root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}

	cleaned := sessionNameCleaner.ReplaceAllString(sessionName, "")
	if cleaned == "" {
		cleaned = "session"
	}
	created := clock().UTC()
	folder := fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z"))
	path := filepath.Join(root, folder)

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, Manifest{}, err
	}

	journalPath := filepath.Join(path, "journal.jsonl.sz")
	framesPath := filepath.Join(path, "frames.bin.zst")
	manifestPath := filepath.Join(path, "manifest.json")

	journalFile, err := os.Create(journalPath)
	if err != nil {
		return nil, Manifest{}, err
	}
	journalStream := snappy.NewBufferedWriter(journalFile)

	frameFile, err := os.Create(framesPath)
	if err != nil {
		journalFile.Close()
		return nil, Manifest{}, err
	}
	frameStream, err := zstd.NewWriter(frameFile)
	if err != nil {
		journalStream.Close()
		journalFile.Close()
		frameFile.Close()
		return nil, Manifest{}, err
	}

	manifest := Manifest{
		Version:     1,
		CreatedAt:   created.Format(time.RFC3339Nano),
		JournalPath: "journal.jsonl.sz",
		FramesPath:  "frames.bin.zst",
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err == nil {
		err = os.WriteFile(manifestPath, data, 0o644)
	}
	if err != nil {
		frameStream.Close()
		frameFile.Close()
		journalStream.Close()
		journalFile.Close()
		return nil, Manifest{}, err
	}

	recorder := &Recorder{
		dir:           path,
		now:           clock,
		journalFile:   journalFile,
		journalStream: journalStream,
		frameFile:     frameFile,
		frameStream:   frameStream,
	}
	return recorder, manifest, nil
}

// Directory exposes the directory backing the capture bundle.
func (r *Recorder) Directory() string {
	if r == nil {
		return ""
	}
	return r.dir
}

// Record persists one frame together with its journal entry. A nil recorder
// is a no-op so callers can leave capture unconfigured.
func (r *Recorder) Record(direction Direction, link Link, payload []byte) error {
	if r == nil {
		return nil
	}
	captured := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	record := journalRecord{
		Seq:        r.seq,
		CapturedAt: captured.Format(time.RFC3339Nano),
		Direction:  string(direction),
		Link:       string(link),
		Size:       len(payload),
	}
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if _, err := r.journalStream.Write(append(line, '\n')); err != nil {
		return err
	}
	if err := r.journalStream.Flush(); err != nil {
		return err
	}

	//1.- Length-prefixed frames keyed by sequence so tooling can step the
	// stream without the journal.
	header := make([]byte, 8+8+4)
	binary.LittleEndian.PutUint64(header[0:8], r.seq)
	binary.LittleEndian.PutUint64(header[8:16], uint64(captured.UnixNano()))
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(payload)))
	if _, err := r.frameStream.Write(header); err != nil {
		return err
	}
	if _, err := r.frameStream.Write(payload); err != nil {
		return err
	}
	return nil
}

// Close flushes both streams and releases the file handles.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	if err := r.journalStream.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.journalStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.journalFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.frameStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.frameFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
