package domain

import (
	"testing"
)

// FuzzParseUKN tests that parsing never panics on arbitrary input and that
// every accepted value round-trips unchanged.
//
// Justification: UKNs arrive from relying parties; the parser is a trust boundary.
func FuzzParseUKN(f *testing.F) {
	f.Add("")
	f.Add("KYC-0000-0000-0000")
	f.Add("kyc-abcd-ef01-2345")
	f.Add("KYC--")
	f.Add("'; DROP TABLE cases;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		u, err := ParseUKN(input)
		if err != nil {
			return
		}
		if !uknPattern.MatchString(u.String()) {
			t.Errorf("accepted UKN %q does not match format", u)
		}
		again, err := ParseUKN(u.String())
		if err != nil || again != u {
			t.Errorf("round-trip changed UKN %q -> %q (%v)", u, again, err)
		}
	})
}

// FuzzParseCaseID checks the either-valid-or-error invariant for case identifiers.
func FuzzParseCaseID(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseCaseID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Error("nil case id accepted")
		}
		roundTrip, err := ParseCaseID(id.String())
		if err != nil || roundTrip != id {
			t.Errorf("round-trip failed for %q", input)
		}
	})
}
