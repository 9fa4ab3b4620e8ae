// Package splitter turns an upstream SSE byte stream into a sequence of
// event payloads, one per "data: " line, grounded on the line-scanning
// pattern adaptor/openai_compatible uses for its own streaming relay.
package splitter

import (
	"bufio"
	"io"
	"strings"
)

const (
	dataPrefix   = "data:"
	maxLineBytes = 1024 * 1024
)

// Splitter reads newline-terminated SSE fragments off r and yields the
// trimmed event payload from each "data:" line, skipping blank lines and
// anything that isn't a data event (comments, retry:, event: framing).
type Splitter struct {
	scanner *bufio.Scanner
}

// New wraps r, sizing the scan buffer to accommodate large chunk payloads.
func New(r io.Reader) *Splitter {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, maxLineBytes)
	scanner.Buffer(buf, maxLineBytes)
	scanner.Split(bufio.ScanLines)
	return &Splitter{scanner: scanner}
}

// Next returns the next event payload and true, or ok=false once the
// stream is exhausted. Call Err after a false return to distinguish EOF
// from a scan failure (e.g. a line exceeding the buffer).
func (s *Splitter) Next() (payload string, ok bool) {
	for s.scanner.Scan() {
		line := normalizeDataLine(s.scanner.Text())
		if !strings.HasPrefix(line, dataPrefix+" ") {
			continue
		}
		return strings.TrimPrefix(line, dataPrefix+" "), true
	}
	return "", false
}

// Err reports the scanner's terminal error, if any.
func (s *Splitter) Err() error { return s.scanner.Err() }

// normalizeDataLine tolerates upstreams that omit the space after the
// colon ("data:x" instead of "data: x").
func normalizeDataLine(line string) string {
	if strings.HasPrefix(line, dataPrefix) && !strings.HasPrefix(line, dataPrefix+" ") {
		return dataPrefix + " " + strings.TrimPrefix(line, dataPrefix)
	}
	return line
}
