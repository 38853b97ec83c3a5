// Package numbering formats and parses the year-scoped reference numbers
// carried by requêtes ("REQ-2026-00042") and dossiers ("DOS-2026-00007").
//
// Allocation itself lives in the repositories because it must happen inside
// the transaction that persists the entity; see repository.Tx.NextNumber.
package numbering

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind selects the numbered entity family.
type Kind string

const (
	KindRequete Kind = "REQ"
	KindDossier Kind = "DOS"
)

// Width is the zero-padded width of the sequence part.
const Width = 5

// Prefix returns "{KIND}-{year}-" with the UTC year of now. The year is
// part of the prefix, so the sequence restarts every year without any
// reset job.
func Prefix(kind Kind, now time.Time) string {
	return fmt.Sprintf("%s-%d-", kind, now.UTC().Year())
}

// Format renders the number for seq under prefix.
func Format(prefix string, seq int) string {
	return fmt.Sprintf("%s%0*d", prefix, Width, seq)
}

// Sequence extracts the trailing sequence of a number. ok is false when the
// number does not end in a decimal group.
func Sequence(number string) (int, bool) {
	i := strings.LastIndex(number, "-")
	if i < 0 || i == len(number)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(number[i+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
