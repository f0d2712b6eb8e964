package claims

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// Normalize composes to NFC, collapses whitespace and uppercases.
func Normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(norm.NFC.String(s)), " "))
}

// Similarity returns 1 - levenshtein(a, b) / max(len(a), len(b)) over runes of
// the normalized inputs. Two empty strings are identical.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	longest := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(na, nb))/float64(longest)
}
