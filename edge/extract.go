package edge

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedEvent is returned when an event does not carry a
	// request at Records[0].cf.request with a string uri.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrRewritePanicked is passed to the completion callback when the
	// rewrite panicked before it could complete.
	ErrRewritePanicked = errors.New("rewrite panicked")
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedEvent, fmt.Sprintf(format, args...))
}

// RequestFromEvent returns the request of the first record. Records
// past the first are ignored.
func RequestFromEvent(evt *Event) (*Request, error) {
	if evt == nil {
		return nil, malformed("event is nil")
	}

	if len(evt.Records) == 0 {
		return nil, malformed("Records is empty")
	}

	if err := evt.Records[0].err; err != nil {
		return nil, malformed("Records[0]: %v", err)
	}

	cf := evt.Records[0].CF
	if cf == nil {
		return nil, malformed("Records[0].cf is missing")
	}

	if cf.Request == nil {
		return nil, malformed("Records[0].cf.request is missing")
	}

	if cf.Request.uriMissing {
		return nil, malformed("Records[0].cf.request.uri is missing")
	}

	return cf.Request, nil
}

// DecodeEvent decodes a raw event payload. Only the shape of the
// envelope is checked here, the first record is checked by
// RequestFromEvent.
func DecodeEvent(payload []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	return &evt, nil
}
