package extract

// streaming.go provides the reader stack placed under the delimited parser.
//
//   - BOM handling: a UTF-8 BOM is dropped and UTF-16 input (with BOM) is
//     decoded to UTF-8 by golang.org/x/text before anything else sees it
//   - sanitizer: replaces invalid UTF-8 bytes with '?' so one bad byte does
//     not fail the whole feed
//   - CountingReader: tracks bytes read for progress logging
//
// Use wrapInput to apply all three in the correct order.

import (
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sanitizer wraps an io.Reader and replaces invalid UTF-8 bytes with '?'.
// Memory use is bounded by the caller's buffer, never by file size.
type sanitizer struct {
	r io.Reader

	// bytes of a multi-byte sequence split across two reads
	pending []byte
}

func newSanitizer(r io.Reader) *sanitizer {
	return &sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if isASCII(p[:n]) {
		return n, err
	}
	return s.clean(p[:n], err == io.EOF), err
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// clean rewrites data in place and returns the number of bytes to hand out.
// Unless atEOF, a trailing partial sequence is held back for the next Read.
func (s *sanitizer) clean(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	r         io.Reader
	BytesRead int64
	Total     int64 // 0 if unknown
}

// NewCountingReader creates a counting reader with an optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{r: r, Total: total}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (c *CountingReader) Progress() int {
	if c.Total <= 0 {
		return 0
	}
	return int(c.BytesRead * 100 / c.Total)
}

// wrapInput layers BOM handling, UTF-8 sanitizing and byte counting.
// Counting sits outermost so it reports decoded bytes handed to the parser.
func wrapInput(r io.Reader, total int64) *CountingReader {
	decoded := transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	return NewCountingReader(newSanitizer(decoded), total)
}
