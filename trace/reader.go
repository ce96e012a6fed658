package trace

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// Reader streams requests from a trace file of whitespace-separated
// "key value" lines. Malformed lines are skipped.
type Reader struct {
	path  string
	limit int64

	f       *os.File
	scanner *bufio.Scanner
	count   int64
	req     Request
}

// NewReader opens the trace at path. limit > 0 caps the number of
// requests returned per pass; 0 means the whole file.
func NewReader(path string, limit int64) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		path:    path,
		limit:   limit,
		f:       f,
		scanner: bufio.NewScanner(f),
	}, nil
}

func (t *Reader) Next() *Request {
	for t.limit == 0 || t.count < t.limit {
		if !t.scanner.Scan() {
			return nil
		}
		fields := strings.Fields(t.scanner.Text())
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		t.req = Request{Key: fields[0], Value: value}
		t.count++
		return &t.req
	}
	return nil
}

// Reset reopens the file and starts over. A Reset after a read error
// also clears it.
func (t *Reader) Reset() {
	_ = t.f.Close()
	f, err := os.Open(t.path)
	if err != nil {
		// Leave the reader drained; Next will return nil.
		t.scanner = bufio.NewScanner(strings.NewReader(""))
		t.count = 0
		return
	}
	t.f = f
	t.scanner = bufio.NewScanner(f)
	t.count = 0
}

// Close releases the underlying file.
func (t *Reader) Close() error {
	return t.f.Close()
}
