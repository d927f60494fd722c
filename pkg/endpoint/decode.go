package endpoint

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rhuss/chatlike/pkg/api"
)

// decodeText emits body text as it arrives. A multi-byte character split
// across reads is held back until it is complete. Invalid trailing bytes are
// replaced with U+FFFD at the end of the body.
func decodeText(ctx context.Context, body io.Reader, emit EmitFunc) error {
	buf := make([]byte, 4096)
	var pending []byte

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			cut := completePrefix(pending)
			if cut > 0 {
				if err := emit(string(pending[:cut])); err != nil {
					return api.NewAbortedError(err)
				}
				pending = append(pending[:0], pending[cut:]...)
			}
		}

		if errors.Is(readErr, io.EOF) {
			if len(pending) > 0 {
				if err := emit(strings.ToValidUTF8(string(pending), "\uFFFD")); err != nil {
					return api.NewAbortedError(err)
				}
			}
			return nil
		}
		if readErr != nil {
			return mapRequestError(ctx, readErr)
		}
	}
}

// completePrefix returns the length of the longest prefix of p that does not
// end inside an incomplete UTF-8 sequence.
func completePrefix(p []byte) int {
	for i := len(p) - 1; i >= 0 && i >= len(p)-utf8.UTFMax; i-- {
		if utf8.RuneStart(p[i]) {
			if utf8.FullRune(p[i:]) {
				return len(p)
			}
			return i
		}
	}
	return len(p)
}
