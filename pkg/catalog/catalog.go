// Package catalog confirms candidate book titles against an authoritative
// book catalog.
//
// A Catalog answers title and keyword searches. The Verifier scores what it
// returns against the candidate, drops low-confidence matches and paces the
// calls it makes. Lookup failures are reported as "not found".
package catalog

import (
	"context"
	"strings"
)

// Item is one catalog entry.
type Item struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Publisher   string `json:"publisher"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Link        string `json:"link"`
	ISBN        string `json:"isbn,omitempty"`
	PubDate     string `json:"pubdate,omitempty"`
}

// Record is an Item confirmed for a candidate.
type Record struct {
	Item
	Candidate string `json:"candidate"`
	Score     int    `json:"score"`
}

// Catalog is the catalog-lookup collaborator.
type Catalog interface {
	// SearchTitle looks max items up by title.
	SearchTitle(ctx context.Context, title string, max int) ([]Item, error)

	// Search looks max items up by free-text keyword.
	Search(ctx context.Context, keyword string, max int) ([]Item, error)
}

// InMemory is a Catalog over a fixed item list, matching by case-insensitive
// substring. It serves offline runs and tests.
type InMemory struct {
	items []Item
}

// NewInMemory serves the given items.
func NewInMemory(items ...Item) *InMemory {
	return &InMemory{items: append([]Item(nil), items...)}
}

// SearchTitle returns up to max items whose title contains title.
func (m *InMemory) SearchTitle(_ context.Context, title string, max int) ([]Item, error) {
	return m.match(title, max, func(it Item) string { return it.Title }), nil
}

// Search returns up to max items whose title, author, publisher or
// description contains keyword.
func (m *InMemory) Search(_ context.Context, keyword string, max int) ([]Item, error) {
	return m.match(keyword, max, func(it Item) string {
		return it.Title + " " + it.Author + " " + it.Publisher + " " + it.Description
	}), nil
}

func (m *InMemory) match(q string, max int, field func(Item) string) []Item {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []Item{}
	if q == "" {
		return out
	}
	for _, it := range m.items {
		if max > 0 && len(out) >= max {
			break
		}
		if strings.Contains(strings.ToLower(field(it)), q) {
			out = append(out, it)
		}
	}
	return out
}
