package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultMemberNumberPrefix is the association prefix used when none is configured.
const DefaultMemberNumberPrefix = "ALU"

// MemberNumber is the human-facing member identifier, formatted PREFIX-YEAR-SEQ.
type MemberNumber string

// ErrInvalidMemberNumber is returned when a member number cannot be parsed.
var ErrInvalidMemberNumber = errors.New("invalid member number")

// FormatMemberNumber renders PREFIX-YEAR-SEQ with a zero-padded 4-digit sequence.
// Sequences above 9999 keep all their digits.
func FormatMemberNumber(prefix string, year int, seq int64) MemberNumber {
	return MemberNumber(fmt.Sprintf("%s-%d-%04d", prefix, year, seq))
}

// MemberNumberParts is the parsed form of a MemberNumber.
type MemberNumberParts struct {
	Prefix string
	Year   int
	Seq    int64
}

// ParseMemberNumber splits a member number into its parts.
func ParseMemberNumber(n MemberNumber) (MemberNumberParts, error) {
	parts := strings.Split(strings.TrimSpace(string(n)), "-")
	if len(parts) != 3 || parts[0] == "" || len(parts[2]) < 4 {
		return MemberNumberParts{}, fmt.Errorf("%w: %q", ErrInvalidMemberNumber, n)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || year <= 0 {
		return MemberNumberParts{}, fmt.Errorf("%w: %q", ErrInvalidMemberNumber, n)
	}
	seq, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || seq <= 0 {
		return MemberNumberParts{}, fmt.Errorf("%w: %q", ErrInvalidMemberNumber, n)
	}
	return MemberNumberParts{Prefix: parts[0], Year: year, Seq: seq}, nil
}

// Less orders member numbers by (prefix, year, seq).
func (p MemberNumberParts) Less(o MemberNumberParts) bool {
	if p.Prefix != o.Prefix {
		return p.Prefix < o.Prefix
	}
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Seq < o.Seq
}
