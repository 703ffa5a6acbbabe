package domain

import (
	"testing"

	dErrors "dossier/pkg/domain-errors"
)

// Path parameters reach these parsers unfiltered.
func FuzzParseRegistrationID(f *testing.F) {
	for _, seed := range []string{
		"",
		"6f1c2a9e-3b4d-4c5e-8f70-112233445566",
		"{6f1c2a9e-3b4d-4c5e-8f70-112233445566}",
		"urn:uuid:6f1c2a9e-3b4d-4c5e-8f70-112233445566",
		"00000000-0000-0000-0000-000000000000",
		" 6f1c2a9e-3b4d-4c5e-8f70-112233445566",
		"../../etc/passwd",
		"\xff\xfe",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		got, err := ParseRegistrationID(input)
		if err != nil {
			if dErrors.CodeOf(err) != dErrors.CodeInvalidInput {
				t.Fatalf("unexpected error code for %q: %v", input, err)
			}
			return
		}
		if got.IsNil() {
			t.Fatalf("nil id accepted from %q", input)
		}

		text, err := got.MarshalText()
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var back RegistrationID
		if err := back.UnmarshalText(text); err != nil || back != got {
			t.Fatalf("text round trip of %q gave %v, %v", input, back, err)
		}
	})
}

func FuzzIDParsersAgree(f *testing.F) {
	f.Add("6f1c2a9e-3b4d-4c5e-8f70-112233445566")
	f.Add("nope")
	f.Add("")

	f.Fuzz(func(t *testing.T, input string) {
		_, errUser := ParseUserID(input)
		results := []error{errUser}
		_, err := ParsePartnerID(input)
		results = append(results, err)
		_, err = ParseRegistrationID(input)
		results = append(results, err)
		_, err = ParseDocumentID(input)
		results = append(results, err)
		_, err = ParseDeadlineID(input)
		results = append(results, err)

		for _, e := range results[1:] {
			if (e == nil) != (errUser == nil) {
				t.Fatalf("parsers disagree on %q", input)
			}
		}
	})
}
