package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeToken lower-cases and trims an enum-like token.
func NormalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TrimIdentity trims surrounding whitespace from every identity field.
func TrimIdentity(in Identity) Identity {
	return Identity{
		LastName:  strings.TrimSpace(in.LastName),
		FirstName: strings.TrimSpace(in.FirstName),
		BirthDate: strings.TrimSpace(in.BirthDate),
		Cohort:    strings.TrimSpace(in.Cohort),
		Program:   strings.TrimSpace(in.Program),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
	}
}
