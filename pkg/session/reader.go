package session

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// streamReader pumps a device byte stream into a channel so reads can be
// bounded by a timeout even on transports without deadlines (SSH pipes).
// Chunks are used instead of lines because prompts arrive without a trailing
// newline.
type streamReader struct {
	ch     chan []byte
	errCh  chan error
	stopCh chan struct{}

	// pending holds bytes received past the last matched sentinel; they
	// belong to the next read.
	pending string
}

func newStreamReader(r io.Reader) *streamReader {
	s := &streamReader{
		ch:     make(chan []byte),
		errCh:  make(chan error, 1),
		stopCh: make(chan struct{}),
	}
	go s.pump(r)
	return s
}

func (s *streamReader) pump(r io.Reader) {
	for {
		buf := make([]byte, 4096)
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case s.ch <- buf[:n]:
			case <-s.stopCh:
				return
			}
		}
		if err != nil {
			select {
			case s.errCh <- err:
			case <-s.stopCh:
			}
			return
		}
	}
}

// stop releases the pump goroutine. The underlying transport must be closed
// separately to unblock a Read in flight.
func (s *streamReader) stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}

// readUntil accumulates output until the sentinel pattern matches, the
// timeout expires, or the stream fails. On timeout it returns whatever
// arrived together with ErrReadTimeout so callers can decide whether partial
// output is acceptable.
func (s *streamReader) readUntil(sentinel *regexp.Regexp, timeout time.Duration) (string, error) {
	var buf strings.Builder
	buf.WriteString(s.pending)
	s.pending = ""

	if out, ok := s.cut(buf.String(), sentinel); ok {
		return out, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case chunk := <-s.ch:
			buf.Write(chunk)
			if out, ok := s.cut(buf.String(), sentinel); ok {
				return out, nil
			}
		case <-timer.C:
			return buf.String(), ErrReadTimeout
		case err := <-s.errCh:
			return buf.String(), fmt.Errorf("device stream: %w", err)
		}
	}
}

// cut splits accumulated text at the end of the first sentinel match,
// keeping the remainder for the next read.
func (s *streamReader) cut(text string, sentinel *regexp.Regexp) (string, bool) {
	loc := sentinel.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	s.pending = text[loc[1]:]
	return text[:loc[1]], true
}
