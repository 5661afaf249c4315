package notify

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rileyhilliard/vitals/internal/errors"
)

// Alert is one threshold notification pushed by the agent.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"msg"`
	// Received is stamped locally on arrival and is not part of the wire format.
	Received time.Time `json:"-"`
}

// DecodeAlert parses one notification frame. Frames that are not JSON objects
// or that carry neither a title nor a message are rejected.
func DecodeAlert(data []byte) (Alert, error) {
	var a Alert
	if err := json.Unmarshal(data, &a); err != nil {
		return Alert{}, errors.WrapWithCode(err, errors.ErrParse,
			"Malformed notification payload", "")
	}
	a.Title = strings.TrimSpace(a.Title)
	a.Message = strings.TrimSpace(a.Message)
	if a.Title == "" && a.Message == "" {
		return Alert{}, errors.New(errors.ErrParse, "Notification has no title or message", "")
	}
	return a, nil
}

// Sink receives decoded alerts. Deliver must not block for long: the channel
// reads the next frame only after Deliver returns.
type Sink interface {
	Deliver(Alert)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Alert)

// Deliver calls f(a).
func (f SinkFunc) Deliver(a Alert) { f(a) }

// ChanSink forwards alerts to ch, dropping them when ch is full.
func ChanSink(ch chan<- Alert) Sink {
	return SinkFunc(func(a Alert) {
		select {
		case ch <- a:
		default:
		}
	})
}
