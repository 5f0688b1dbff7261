package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseClientID checks that parsing never panics on arbitrary input and
// that any accepted value round-trips through its string form.
func FuzzParseClientID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE clients;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		parsed, err := ParseClientID(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseClientID(parsed.String())
		if err != nil {
			t.Errorf("accepted ID failed round-trip: %v", err)
		}
		if roundTrip != parsed {
			t.Error("round-trip changed ID value")
		}
		if !utf8.ValidString(input) {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseAllIDs checks that every ID kind applies identical validation.
func FuzzParseAllIDs(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errUser := ParseUserID(input)
		_, errClient := ParseClientID(input)
		_, errCaregiver := ParseCaregiverID(input)
		_, errReferral := ParseReferralID(input)
		_, errNote := ParseNoteID(input)

		accepted := errUser == nil
		for _, err := range []error{errClient, errCaregiver, errReferral, errNote} {
			if (err == nil) != accepted {
				t.Error("inconsistent validation across ID kinds")
			}
		}
	})
}
