// Package protocol implements the datagram message format used by the
// authoring tool: UTF-8 text fragments followed by a terminator fragment, the
// concatenation of which is a JSON job document.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Terminator is the fragment that ends a logical message.
const Terminator = "MessageFinished"

// ErrMalformedMessage reports a complete message that could not be decoded.
var ErrMalformedMessage = errors.New("malformed message")

// Framer reassembles fragments from a single sender into jobs. It is not safe
// for concurrent use; the receiver loop owns one.
type Framer struct {
	buf bytes.Buffer
}

// Feed consumes one packet. It returns done=false while more packets are
// needed. On the terminator the accumulated text is decoded and the
// accumulator is reset whether decoding succeeds or not.
func (f *Framer) Feed(packet []byte) (job *ImportJob, done bool, err error) {
	if len(packet) == 0 {
		return nil, false, nil
	}

	if string(packet) != Terminator {
		f.buf.Write(packet)
		return nil, false, nil
	}

	payload := bytes.Clone(f.buf.Bytes())
	f.buf.Reset()

	job, err = Decode(payload)
	return job, true, err
}

// Reset drops any partially accumulated message.
func (f *Framer) Reset() {
	f.buf.Reset()
}

// Pending returns the number of bytes accumulated toward the next message.
func (f *Framer) Pending() int {
	return f.buf.Len()
}

// Decode parses one complete message and assigns it a fresh job ID.
func Decode(payload []byte) (*ImportJob, error) {
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", ErrMalformedMessage)
	}

	var job ImportJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	job.ID = uuid.NewString()
	return &job, nil
}
