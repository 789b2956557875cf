package signal

import (
	"errors"
	"testing"

	"pgregory.net/rapid"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		ok   bool
	}{
		{"+2134567890", KindPhone, true},
		{"  +15550001111 ", KindPhone, true},
		{"+1", KindInvalid, false},
		{"2134567890", KindInvalid, false},
		{"+0123456789", KindInvalid, false},
		{"+1234567890123456", KindInvalid, false},
		{"group.aGVsbG8=", KindGroup, true},
		{"group.", KindInvalid, false},
		{"group.not base64!", KindInvalid, false},
		{"alice", KindInvalid, false},
		{"", KindInvalid, false},
	}

	for _, tt := range tests {
		id, err := ParseIdentifier(tt.in)
		if tt.ok {
			if err != nil {
				t.Errorf("ParseIdentifier(%q) failed: %v", tt.in, err)
				continue
			}
			if id.Kind() != tt.kind {
				t.Errorf("ParseIdentifier(%q) kind = %s, want %s", tt.in, id.Kind(), tt.kind)
			}
			continue
		}
		if err == nil {
			t.Errorf("ParseIdentifier(%q) = %v, want error", tt.in, id)
		}
		if !errors.Is(err, ErrInvalidIdentifier) {
			t.Errorf("ParseIdentifier(%q) error %v does not wrap ErrInvalidIdentifier", tt.in, err)
		}
	}
}

func TestEncodeGroupID(t *testing.T) {
	id := EncodeGroupID("abc")
	if id.String() != "group.YWJj" {
		t.Fatalf("EncodeGroupID = %q, want group.YWJj", id)
	}
	if !id.IsGroup() || id.IsPhone() {
		t.Errorf("encoded group has kind %s", id.Kind())
	}
	parsed, err := ParseIdentifier(id.String())
	if err != nil || parsed != id {
		t.Errorf("round trip failed: %v, %v", parsed, err)
	}
}

func TestZeroIdentifier(t *testing.T) {
	var id Identifier
	if !id.IsZero() || id.IsGroup() || id.IsPhone() {
		t.Error("zero identifier must be neither phone nor group")
	}
}

// phoneGen draws valid E.164 numbers.
func phoneGen() *rapid.Generator[string] {
	return rapid.StringMatching(`\+[1-9][0-9]{1,14}`)
}

// identifierGen draws phone or group identifiers.
func identifierGen() *rapid.Generator[Identifier] {
	return rapid.Custom(func(t *rapid.T) Identifier {
		if rapid.Bool().Draw(t, "group") {
			return EncodeGroupID(rapid.StringN(1, 32, -1).Draw(t, "raw"))
		}
		id, err := PhoneID(phoneGen().Draw(t, "phone"))
		if err != nil {
			t.Fatalf("generator produced invalid phone: %v", err)
		}
		return id
	})
}

func TestIdentifierRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := identifierGen().Draw(t, "id")
		parsed, err := ParseIdentifier(id.String())
		if err != nil {
			t.Fatalf("ParseIdentifier(%q): %v", id, err)
		}
		if parsed != id {
			t.Fatalf("round trip changed %v into %v", id, parsed)
		}
		if parsed.IsGroup() == parsed.IsPhone() {
			t.Fatalf("identifier %v must be exactly one of phone or group", parsed)
		}
	})
}
