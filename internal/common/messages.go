package common

import (
	"errors"
	"fmt"
)

// userMessages maps each error kind to the single fixed string shown to the
// end user. Provider internals never leak through here; anything unmapped
// falls back to the generic message.
var userMessages = []struct {
	kind error
	msg  string
}{
	{ErrInsufficientQuota, "You have no seeds left today. Water your garden or share an entry to earn more."},
	{ErrSecurityViolation, "The generated text could not be used. Please try again."},
	{ErrProviderUnavailable, "The writing assistant is unavailable right now. Please try again later."},
	{ErrUnauthorized, "Your hosting connection was rejected. Please reconnect your account."},
	{ErrRequiresReauth, "Please reconnect your hosting account in settings."},
	{ErrForbidden, "Your hosting account does not have permission for this repository."},
	{ErrNotFoundUpstream, "The configured repository could not be found."},
	{ErrAlreadyPublished, "This entry has already been published."},
	{ErrConflict, "The file changed while publishing. Please try again."},
	{ErrValidation, "That value is not valid."},
	{ErrNotFound, "Not found."},
}

const genericMessage = "Something went wrong. Please try again."

// UserMessage returns the fixed user-facing text for an error kind.
// Rate-limited errors additionally carry the formatted wait time.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return fmt.Sprintf("The hosting service is busy. Please wait %s and try again.", FormatWait(rl.WaitSeconds))
	}
	for _, m := range userMessages {
		if errors.Is(err, m.kind) {
			return m.msg
		}
	}
	return genericMessage
}

// FormatWait renders a wait in seconds as a short human string, e.g.
// "45 seconds" or "2 minutes".
func FormatWait(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		if seconds == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", seconds)
	}
	minutes := (seconds + 59) / 60
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
