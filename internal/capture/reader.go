package capture

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Frame is one recorded wire frame joined back with its journal metadata.
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Direction  Direction
	Link       Link
	Data       []byte
}

// ReadBundle loads every frame from a capture directory produced by a
// Recorder. The manifest locates the streams; journal entries and raw frames
// are joined by sequence number.
func ReadBundle(dir string) ([]Frame, error) {
	manifestData, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		return nil, err
	}

	records, err := readJournal(filepath.Join(dir, manifest.JournalPath))
	if err != nil {
		return nil, err
	}
	payloads, err := readFrames(filepath.Join(dir, manifest.FramesPath))
	if err != nil {
		return nil, err
	}

	frames := make([]Frame, 0, len(records))
	for _, record := range records {
		payload, ok := payloads[record.Seq]
		if !ok {
			return nil, fmt.Errorf("journal seq %d has no frame payload", record.Seq)
		}
		capturedAt, err := time.Parse(time.RFC3339Nano, record.CapturedAt)
		if err != nil {
			return nil, err
		}
		frames = append(frames, Frame{
			Seq:        record.Seq,
			CapturedAt: capturedAt,
			Direction:  Direction(record.Direction),
			Link:       Link(record.Link),
			Data:       payload,
		})
	}
	return frames, nil
}

func readJournal(path string) ([]journalRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []journalRecord
	scanner := bufio.NewScanner(snappy.NewReader(file))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record journalRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, scanner.Err()
}

func readFrames(path string) (map[uint64][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	payloads := make(map[uint64][]byte)
	header := make([]byte, 8+8+4)
	for {
		if _, err := io.ReadFull(decoder, header); err != nil {
			if err == io.EOF {
				return payloads, nil
			}
			return nil, err
		}
		seq := binary.LittleEndian.Uint64(header[0:8])
		size := binary.LittleEndian.Uint32(header[16:20])
		payload := make([]byte, size)
		if _, err := io.ReadFull(decoder, payload); err != nil {
			return nil, err
		}
		payloads[seq] = payload
	}
}
