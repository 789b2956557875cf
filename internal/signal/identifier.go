package signal

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Kind tells which half of an Identifier is set.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPhone
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindPhone:
		return "phone"
	case KindGroup:
		return "group"
	default:
		return "invalid"
	}
}

// GroupPrefix marks a recipient as a group for the REST gateway.
const GroupPrefix = "group."

var phoneRe = regexp.MustCompile(`^\+[1-9][0-9]{1,14}$`)

// Identifier is a canonical Signal target: either a phone number or a group
// id, never both. It is comparable and safe to use as a map key.
type Identifier struct {
	kind  Kind
	value string
}

// PhoneID builds a phone identifier. The number must be E.164.
func PhoneID(number string) (Identifier, error) {
	if !phoneRe.MatchString(number) {
		return Identifier{}, errors.Wrapf(ErrInvalidIdentifier, "phone number %q", number)
	}
	return Identifier{kind: KindPhone, value: number}, nil
}

// GroupID builds a group identifier from its "group."-prefixed form.
func GroupID(token string) (Identifier, error) {
	rest, ok := strings.CutPrefix(token, GroupPrefix)
	if !ok || rest == "" {
		return Identifier{}, errors.Wrapf(ErrInvalidIdentifier, "group id %q", token)
	}
	if _, err := base64.StdEncoding.DecodeString(rest); err != nil {
		return Identifier{}, errors.Wrapf(ErrInvalidIdentifier, "group id %q: %v", token, err)
	}
	return Identifier{kind: KindGroup, value: token}, nil
}

// EncodeGroupID converts the raw group id found in received envelopes into
// the form the send endpoints expect.
func EncodeGroupID(raw string) Identifier {
	return Identifier{kind: KindGroup, value: GroupPrefix + base64.StdEncoding.EncodeToString([]byte(raw))}
}

// ParseIdentifier accepts a phone number or a group id.
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, GroupPrefix) {
		return GroupID(s)
	}
	return PhoneID(s)
}

func (id Identifier) Kind() Kind    { return id.kind }
func (id Identifier) IsZero() bool  { return id.kind == KindInvalid }
func (id Identifier) IsGroup() bool { return id.kind == KindGroup }
func (id Identifier) IsPhone() bool { return id.kind == KindPhone }

// String returns the canonical form; ParseIdentifier(id.String()) == id.
func (id Identifier) String() string { return id.value }
