package wire

import (
	"github.com/goccy/go-json"
)

// Encode renders an envelope as a single line of JSON, newline-terminated,
// the same line-delimited shape the teacher's participant/conn.go writes to
// its TCP sockets.
func Encode(e Envelope) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Decode parses one line (without its trailing newline) back into an
// Envelope.
func Decode(line []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(line, &e)
	return e, err
}
