package deck

import (
	"errors"
	"fmt"
	"strings"

	"deckhand/internal/protocol"
)

var (
	// ErrTimeout reports that the deck sent no usable response within the
	// configured command timeout, across all retries.
	ErrTimeout = errors.New("deck: no response within timeout")

	// ErrRejected reports that the deck answered with a response that does
	// not acknowledge the command.
	ErrRejected = errors.New("deck: command rejected")

	// ErrBadState reports an operation that is not legal in the
	// controller's current state, such as a second record start without an
	// intervening stop.
	ErrBadState = errors.New("deck: operation not valid in current state")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, op, message string, err error) error {
	detail := buildDetail(op, message)
	if marker == nil {
		marker = ErrRejected
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(op, message string) string {
	parts := make([]string, 0, 2)
	if op = strings.TrimSpace(op); op != "" {
		parts = append(parts, op)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "deck failure"
	}
	return strings.Join(parts, ": ")
}

// retryable reports whether an exchange error may be resolved by a resync
// and another attempt. Rejections are final; timeouts and framing breaks are
// not.
func retryable(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var malformed *protocol.MalformedError
	return errors.As(err, &malformed)
}
