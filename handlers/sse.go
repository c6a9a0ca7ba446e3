package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
)

// eventStream writes StreamEvents as server-sent events:
// "event: <type>\ndata: <json>\n\n", flushed after every event.
type eventStream struct {
	w    http.ResponseWriter
	rc   *http.ResponseController
	sent int
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	// Flushing sends the 200 and the headers. When flushing is unsupported
	// nothing has been written yet.
	if err := rc.Flush(); err != nil {
		if errors.Is(err, http.ErrNotSupported) {
			return nil, err
		}
		return nil, fmt.Errorf("flush stream headers: %w", err)
	}
	return &eventStream{w: w, rc: rc}, nil
}

// Send writes one event. An error means the client is gone.
func (s *eventStream) Send(e entities.StreamEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		return err
	}
	s.sent++
	return nil
}

func (s *eventStream) Sent() int {
	return s.sent
}
