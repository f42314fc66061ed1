package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorruptRecord is returned when a persisted record cannot be decoded
// into a complete session.
var ErrCorruptRecord = errors.New("corrupt session record")

const recordVersionCurrent = 1

// record is the persisted shape. The version field is optional on read so
// records written without it still decode.
type record struct {
	Version int `json:"v,omitempty"`
	Session
}

// Encode serializes s into the persisted JSON record.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	return json.Marshal(record{Version: recordVersionCurrent, Session: *s})
}

// Decode parses a persisted record. Unknown schema versions, unknown roles
// and partial sessions are reported as [ErrCorruptRecord]. Expiry is not
// checked here.
func Decode(data []byte) (*Session, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if rec.Version > recordVersionCurrent || rec.Version < 0 {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrCorruptRecord, rec.Version)
	}

	sess := rec.Session
	if sess.User == nil || sess.Token == "" {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, ErrPartialSession)
	}
	if !sess.User.Role.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, ErrUnknownRole)
	}
	return &sess, nil
}
