package importer

import (
	"bufio"
	"bytes"
	"io"

	json "github.com/goccy/go-json"

	"redarch/internal/archive"
)

// Dump lines can be large (long self-texts with embedded markup); the
// scanner buffer grows up to this bound before a line counts as a decoder
// failure.
const maxLineBytes = 32 << 20

// jsonLineStream adapts line-delimited JSON to archive.RecordStream.
// Malformed lines are counted and skipped. Close is idempotent; for
// subprocess-backed streams it surfaces the process exit status.
type jsonLineStream struct {
	scanner  *bufio.Scanner
	close    func() error
	closed   bool
	closeErr error
	bad      int64
}

func newJSONLineStream(r io.Reader, close func() error) *jsonLineStream {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), maxLineBytes)
	return &jsonLineStream{scanner: scanner, close: close}
}

func (s *jsonLineStream) Next() (archive.RawRecord, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(line, &fields); err != nil {
			s.bad++
			continue
		}
		raw := make([]byte, len(line))
		copy(raw, line)
		return archive.RawRecord{Fields: fields, JSON: raw}, nil
	}
	if err := s.scanner.Err(); err != nil {
		return archive.RawRecord{}, err
	}
	return archive.RawRecord{}, io.EOF
}

func (s *jsonLineStream) BadRecords() int64 { return s.bad }

func (s *jsonLineStream) Close() error {
	if s.closed {
		return s.closeErr
	}
	s.closed = true
	if s.close != nil {
		s.closeErr = s.close()
	}
	return s.closeErr
}
