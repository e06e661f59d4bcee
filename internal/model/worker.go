package model

import (
	"strings"
	"time"
	"unicode"
)

// Worker is a person who can take tools and consumables out of the warehouse.
type Worker struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact,omitempty"`
	Section   string    `json:"section,omitempty"`
	Site      string    `json:"site,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeWorkerID uppercases id and drops every character that is not a
// letter or digit, so "12.345.678-k" and "12345678K" name the same worker.
func NormalizeWorkerID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range strings.ToUpper(id) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
