package logger

// Intention represents the semantic intent of a log line, orthogonal to level.
// The console handler renders it as an icon; file logs carry it as a
// structured "intention" attribute.
type Intention string

const (
	IntentionInbound  Intention = "inbound"
	IntentionOutbound Intention = "outbound"
	IntentionPoll     Intention = "poll"
	IntentionStream   Intention = "stream"
	IntentionDrop     Intention = "drop"
	IntentionCommand  Intention = "command"
	IntentionStatus   Intention = "status"
	IntentionCancel   Intention = "cancel"
	IntentionConfig   Intention = "config"
)

// iconFor returns a short emoji string for console output for the intention.
func iconFor(i Intention) string {
	switch i {
	case IntentionInbound:
		return "📨"
	case IntentionOutbound:
		return "📤"
	case IntentionPoll:
		return "🔁"
	case IntentionStream:
		return "🔌"
	case IntentionDrop:
		return "🚫"
	case IntentionCommand:
		return "❗"
	case IntentionStatus:
		return "ℹ️"
	case IntentionCancel:
		return "🛑"
	case IntentionConfig:
		return "⚙️"
	default:
		return "➤"
	}
}
