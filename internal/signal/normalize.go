package signal

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// MessageKind classifies a normalized message.
type MessageKind string

const (
	KindText       MessageKind = "text"
	KindReaction   MessageKind = "reaction"
	KindAttachment MessageKind = "attachment"
	KindTyping     MessageKind = "typing"
)

// Attachment references a file held by the gateway.
type Attachment struct {
	ID       string
	Filename string
	MimeType string
}

// InboundReaction is a reaction received on an earlier message.
type InboundReaction struct {
	Emoji           string // empty when the reaction was removed
	TargetAuthor    Identifier
	TargetTimestamp int64
}

// InboundMessage is a normalized packet. It is consumed once and never stored.
type InboundMessage struct {
	Kind        MessageKind
	Sender      Identifier
	SenderName  string
	Group       Identifier // zero for direct messages
	Text        string
	Timestamp   time.Time
	EventID     int64 // envelope timestamp in milliseconds
	Attachments []Attachment
	Reaction    *InboundReaction
	Typing      bool // valid for KindTyping: true while the peer is typing
	Raw         RawMessage
}

// Conversation is the identifier replies should go to.
func (m *InboundMessage) Conversation() Identifier {
	if !m.Group.IsZero() {
		return m.Group
	}
	return m.Sender
}

func malformed(format string, args ...any) error {
	return errors.Wrapf(ErrMalformedPayload, format, args...)
}

func hiddenSender(id string) error {
	return errors.Wrapf(ErrHiddenSender, "sender %s", id)
}

// Normalize turns one receive packet into an InboundMessage. It returns an
// error wrapping ErrMalformedPayload when required fields are missing or
// invalid, ErrHiddenSender when the sender is known only by its UUID, and
// ErrNoContent for envelopes with nothing to deliver.
func Normalize(raw RawMessage) (*InboundMessage, error) {
	if !gjson.ValidBytes(raw) {
		return nil, malformed("invalid json")
	}
	env := gjson.GetBytes(raw, "envelope")
	if !env.IsObject() {
		return nil, malformed("missing 'envelope'")
	}

	source := env.Get("sourceNumber")
	if source.Type != gjson.String {
		source = env.Get("source")
	}
	if source.Type != gjson.String {
		if id := env.Get("sourceUuid"); id.Type == gjson.String {
			return nil, hiddenSender(id.String())
		}
		return nil, malformed("missing 'sourceNumber'")
	}
	sender, err := PhoneID(source.String())
	if err != nil {
		if _, uerr := uuid.Parse(source.String()); uerr == nil {
			return nil, hiddenSender(source.String())
		}
		return nil, malformed("sourceNumber: %v", err)
	}

	ts := env.Get("timestamp")
	if ts.Type != gjson.Number || ts.Int() <= 0 {
		return nil, malformed("missing 'timestamp'")
	}

	msg := &InboundMessage{
		Sender:     sender,
		SenderName: env.Get("sourceName").String(),
		EventID:    ts.Int(),
		Timestamp:  time.UnixMilli(ts.Int()),
		Raw:        raw,
	}

	if data := env.Get("dataMessage"); data.IsObject() {
		if err := normalizeData(msg, data); err != nil {
			return nil, err
		}
		return msg, nil
	}
	if typing := env.Get("typingMessage"); typing.IsObject() {
		msg.Kind = KindTyping
		msg.Typing = typing.Get("action").String() == "STARTED"
		if g := typing.Get("groupId"); g.Type == gjson.String && g.String() != "" {
			msg.Group = EncodeGroupID(g.String())
		}
		return msg, nil
	}
	return nil, ErrNoContent
}

func normalizeData(msg *InboundMessage, data gjson.Result) error {
	if g := data.Get("groupInfo.groupId"); g.Type == gjson.String && g.String() != "" {
		msg.Group = EncodeGroupID(g.String())
	}
	msg.Text = data.Get("message").String()

	if r := data.Get("reaction"); r.IsObject() {
		author, err := PhoneID(r.Get("targetAuthorNumber").String())
		if err != nil {
			return malformed("reaction.targetAuthorNumber: %v", err)
		}
		target := r.Get("targetSentTimestamp")
		if target.Type != gjson.Number {
			return malformed("missing 'reaction.targetSentTimestamp'")
		}
		emoji := r.Get("emoji").String()
		if r.Get("isRemove").Bool() {
			emoji = ""
		} else if emoji == "" {
			return malformed("missing 'reaction.emoji'")
		}
		msg.Reaction = &InboundReaction{Emoji: emoji, TargetAuthor: author, TargetTimestamp: target.Int()}
	}

	var attErr error
	data.Get("attachments").ForEach(func(_, a gjson.Result) bool {
		id := a.Get("id").String()
		if id == "" {
			attErr = malformed("attachment without 'id'")
			return false
		}
		msg.Attachments = append(msg.Attachments, Attachment{
			ID:       id,
			Filename: a.Get("filename").String(),
			MimeType: a.Get("contentType").String(),
		})
		return true
	})
	if attErr != nil {
		return attErr
	}

	switch {
	case msg.Reaction != nil:
		msg.Kind = KindReaction
	case msg.Text != "":
		msg.Kind = KindText
	case len(msg.Attachments) > 0:
		msg.Kind = KindAttachment
	default:
		return ErrNoContent
	}
	return nil
}
