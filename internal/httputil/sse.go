package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// EventStream writes Server-Sent Events and flushes after every frame.
type EventStream struct {
	mu    sync.Mutex
	w     io.Writer
	flush func()
}

// NewEventStream sets the SSE headers and sends the 200 status.
func NewEventStream(w http.ResponseWriter) *EventStream {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	s := &EventStream{w: w}
	if f, ok := w.(http.Flusher); ok {
		s.flush = f.Flush
		s.flush()
	}
	return s
}

// Text sends a raw text event. Multi-line data is split over several data
// lines so the client reassembles it with LF line endings; clients treat CR
// as a line break too, so CRLF and CR are sent as LF.
func (s *EventStream) Text(event, data string) error {
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	return s.write(b.String())
}

// JSON sends an event whose data is v encoded as JSON.
func (s *EventStream) JSON(event string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	return s.write(fmt.Sprintf("event: %s\ndata: %s\n\n", event, body))
}

func (s *EventStream) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, frame); err != nil {
		return err
	}
	if s.flush != nil {
		s.flush()
	}
	return nil
}
