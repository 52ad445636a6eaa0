package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/finnbear/moderation"

	"github.com/siohaza/corridor/internal/protocol"
)

// MaxMouseDelta bounds the mouse counts a single input may carry on either axis.
const MaxMouseDelta = 4096

var (
	ErrNameEmpty         = errors.New("name is empty")
	ErrNameInvalid       = errors.New("name is invalid")
	ErrNameInappropriate = errors.New("name is inappropriate")
)

// ValidateInput rejects inputs the simulation must never see.
func ValidateInput(in *protocol.PacketInput) error {
	if !in.Flags.Known() {
		return fmt.Errorf("%w: unknown movement flags %#x", protocol.ErrMalformed, uint16(in.Flags))
	}
	if !protocol.IsFinite(in.MouseDX, in.MouseDY, in.Timestamp) {
		return fmt.Errorf("%w: non-finite input values", protocol.ErrMalformed)
	}
	if in.MouseDX > MaxMouseDelta || in.MouseDX < -MaxMouseDelta {
		return fmt.Errorf("%w: mouse delta %v out of range", protocol.ErrMalformed, in.MouseDX)
	}
	if in.MouseDY > MaxMouseDelta || in.MouseDY < -MaxMouseDelta {
		return fmt.Errorf("%w: vertical mouse delta %v out of range", protocol.ErrMalformed, in.MouseDY)
	}
	return nil
}

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameEmpty
	}
	if len(name) > protocol.PlayerNameLen || !utf8.ValidString(name) {
		return ErrNameInvalid
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return ErrNameInvalid
		}
	}
	if moderation.Scan(name).Is(moderation.Inappropriate) {
		return ErrNameInappropriate
	}
	return nil
}

// RejectReason maps a name error onto the reason sent back to the client.
func RejectReason(err error) protocol.RejectReason {
	switch {
	case errors.Is(err, ErrNameEmpty):
		return protocol.RejectNameEmpty
	case errors.Is(err, ErrNameInappropriate):
		return protocol.RejectNameInappropriate
	default:
		return protocol.RejectNameInvalid
	}
}
