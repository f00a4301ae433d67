package domain

import "strings"

// Laureate is one Nobel Literature laureate's award metadata. Loaded once
// at startup and treated as read-only afterwards.
type Laureate struct {
	FullName    string `json:"full_name"`
	LastName    string `json:"last_name"`
	YearAwarded int    `json:"year_awarded"`
	Country     string `json:"country,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Language    string `json:"language,omitempty"`
}

// SurnameOf derives the last name used for loose entity matching.
func SurnameOf(fullName string) string {
	fields := strings.Fields(strings.TrimSpace(fullName))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
