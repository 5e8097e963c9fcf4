package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"unicode/utf8"
)

// Fragment splits payload into packets of at most size bytes followed by the
// terminator. Splits fall on rune boundaries so each fragment is valid UTF-8
// on its own.
func Fragment(payload []byte, size int) ([][]byte, error) {
	if size < utf8.UTFMax {
		return nil, fmt.Errorf("fragment size %d is too small", size)
	}

	fragments := make([][]byte, 0, len(payload)/size+2)
	for len(payload) > 0 {
		end := min(size, len(payload))
		for end < len(payload) && end > 0 && !utf8.RuneStart(payload[end]) {
			end--
		}
		if end == 0 {
			// Not UTF-8; split on the byte limit.
			end = min(size, len(payload))
		}
		fragments = append(fragments, payload[:end])
		payload = payload[end:]
	}

	return append(fragments, []byte(Terminator)), nil
}

// Send transmits payload to addr as one logical message.
func Send(ctx context.Context, addr string, payload []byte, size int) error {
	if len(payload) == 0 {
		return errors.New("payload is empty")
	}

	fragments, err := Fragment(payload, size)
	if err != nil {
		return err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	for _, fragment := range fragments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := conn.Write(fragment); err != nil {
			return fmt.Errorf("write fragment: %w", err)
		}
	}

	return nil
}
