package database

// entry lifecycle states
const (
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
)

// MaxErrorMessageLength bounds the error text persisted on a failed entry.
const MaxErrorMessageLength = 1000

// IsTerminalStatus reports whether status is a final state.
func IsTerminalStatus(status string) bool {
	return status == StatusComplete || status == StatusFailed
}

// TruncateErrorMessage cuts msg to MaxErrorMessageLength runes.
func TruncateErrorMessage(msg string) string {
	runes := []rune(msg)
	if len(runes) <= MaxErrorMessageLength {
		return msg
	}
	return string(runes[:MaxErrorMessageLength])
}
