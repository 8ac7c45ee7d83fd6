package ingest

// streaming.go provides the readers every ingest path goes through.
//
//   - bomReader: drops a leading UTF-8 BOM written by spreadsheet exports
//   - UTF8Sanitizer: validates UTF-8 on the fly, either failing on the first
//     invalid byte (strict) or replacing it with '?' (lenient)
//   - CountingReader: counts raw bytes and stops at an optional cap
//
// readPrefix combines them to pull a bounded, line-aligned slice of a file
// into memory.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// InvalidUTF8Error reports the byte offset of the first invalid sequence seen
// by a strict sanitizer.
type InvalidUTF8Error struct {
	Offset int64
}

func (e *InvalidUTF8Error) Error() string {
	return fmt.Sprintf("invalid utf-8 at byte %d", e.Offset)
}

// bomReader strips a UTF-8 BOM from the start of the stream.
type bomReader struct {
	r       *bufio.Reader
	checked bool
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: bufio.NewReader(r)}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err == nil && bytes.Equal(head, utf8BOM) {
			if _, err := b.r.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return b.r.Read(p)
}

// UTF8Sanitizer checks UTF-8 validity while streaming. Multi-byte sequences
// split across reads are carried over to the next call.
type UTF8Sanitizer struct {
	reader  io.Reader
	strict  bool
	pending []byte
	offset  int64

	// Replaced counts invalid bytes rewritten as '?' in lenient mode.
	Replaced int
}

// NewUTF8Sanitizer wraps r. In strict mode the first invalid byte produces an
// *InvalidUTF8Error; otherwise each invalid byte becomes '?' so the output is
// never longer than the input.
func NewUTF8Sanitizer(r io.Reader, strict bool) *UTF8Sanitizer {
	return &UTF8Sanitizer{
		reader:  r,
		strict:  strict,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) < utf8.UTFMax {
		return 0, io.ErrShortBuffer
	}

	n := copy(p, s.pending)
	s.pending = s.pending[:0]

	m, err := s.reader.Read(p[n:])
	n += m
	if n == 0 {
		return 0, err
	}

	out, serr := s.sanitize(p[:n], err == io.EOF)
	if serr != nil {
		return out, serr
	}
	if out == 0 && err == nil {
		// Only an incomplete sequence arrived; ask for more.
		return s.Read(p)
	}
	return out, err
}

func (s *UTF8Sanitizer) sanitize(data []byte, atEOF bool) (int, error) {
	if isASCII(data) {
		s.offset += int64(len(data))
		return len(data), nil
	}

	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && partialRune(data[read:]) {
				s.pending = append(s.pending, data[read:]...)
				s.offset += int64(read)
				return write, nil
			}
			if s.strict {
				return write, &InvalidUTF8Error{Offset: s.offset + int64(read)}
			}
			data[write] = '?'
			s.Replaced++
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	s.offset += int64(len(data))
	return write, nil
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// partialRune reports whether data is a valid but truncated start of a
// multi-byte sequence.
func partialRune(data []byte) bool {
	want := 0
	switch b := data[0]; {
	case b >= 0xC2 && b < 0xE0:
		want = 2
	case b >= 0xE0 && b < 0xF0:
		want = 3
	case b >= 0xF0 && b < 0xF5:
		want = 4
	default:
		return false
	}
	if len(data) >= want {
		return false
	}
	for _, c := range data[1:] {
		if c&0xC0 != 0x80 {
			return false
		}
	}
	return true
}

// CountingReader tracks raw bytes read and reports EOF once Limit bytes have
// been delivered. A zero Limit means unlimited.
type CountingReader struct {
	reader    io.Reader
	Limit     int64
	BytesRead int64
	Capped    bool
}

// NewCountingReader wraps r with an optional byte cap.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	if c.Limit > 0 {
		remaining := c.Limit - c.BytesRead
		if remaining <= 0 {
			// Read one more byte to learn whether the cap actually cut anything.
			var extra [1]byte
			if n, _ := c.reader.Read(extra[:]); n > 0 {
				c.Capped = true
			}
			return 0, io.EOF
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}
	n, err := c.reader.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// prefix is a bounded, BOM-free slice of a file.
type prefix struct {
	data      []byte
	bytesRead int64
	capped    bool
	hadBOM    bool
}

// readPrefix reads at most maxBytes from path after the BOM. When the cap
// cuts the file, the data is trimmed back to the last complete line, or to
// the last complete rune when not even one line fits.
func readPrefix(path string, maxBytes int64) (*prefix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := newBOMReader(f)
	head, _ := br.r.Peek(len(utf8BOM))
	hadBOM := bytes.Equal(head, utf8BOM)

	cr := NewCountingReader(br, maxBytes)
	data, err := io.ReadAll(cr)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if cr.Capped {
		if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
			data = data[:i+1]
		} else {
			data = trimPartialRune(data)
		}
	}

	return &prefix{
		data:      data,
		bytesRead: cr.BytesRead,
		capped:    cr.Capped,
		hadBOM:    hadBOM,
	}, nil
}

// trimPartialRune drops a truncated multi-byte sequence from the end of data.
func trimPartialRune(data []byte) []byte {
	for n := 1; n < utf8.UTFMax && n <= len(data); n++ {
		tail := data[len(data)-n:]
		if tail[0] < utf8.RuneSelf {
			break
		}
		if utf8.RuneStart(tail[0]) {
			if partialRune(tail) {
				return data[:len(data)-n]
			}
			break
		}
	}
	return data
}

// firstLines returns the first n lines of data, keeping line terminators.
func firstLines(data []byte, n int) []byte {
	if n <= 0 {
		return data
	}
	end := 0
	for i := 0; i < n; i++ {
		j := bytes.IndexByte(data[end:], '\n')
		if j < 0 {
			return data
		}
		end += j + 1
	}
	return data[:end]
}
