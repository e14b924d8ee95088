package catalog

import (
	"context"
	"errors"
)

// Package formats understood by the plan builder
const (
	FormatExecutable       = "exe"
	FormatInstallerPackage = "msi"
)

var (
	// ErrBackendUnavailable wraps failures talking to the catalog store
	ErrBackendUnavailable = errors.New("catalog backend unavailable")

	// ErrInvalidCatalog is returned when a catalog document cannot be used
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// Item is the install metadata for one application. Optional fields are empty
// when not set.
type Item struct {
	ID                  string `json:"id" yaml:"id"`
	Name                string `json:"name" yaml:"name"`
	DirectSourceURL     string `json:"directSourceUrl,omitempty" yaml:"directSourceUrl,omitempty"`
	PackageFormat       string `json:"packageFormat,omitempty" yaml:"packageFormat,omitempty"`
	SilentArgs          string `json:"silentArgs,omitempty" yaml:"silentArgs,omitempty"`
	PackageManagerID    string `json:"packageManagerId,omitempty" yaml:"packageManagerId,omitempty"`
	OfficialDownloadURL string `json:"officialDownloadUrl,omitempty" yaml:"officialDownloadUrl,omitempty"`
	OfficialWebsiteURL  string `json:"officialWebsiteUrl,omitempty" yaml:"officialWebsiteUrl,omitempty"`
}

// Lookup fetches catalog items by id. Unknown ids are omitted, and result order
// is unspecified.
type Lookup interface {
	GetItemsByIDs(ctx context.Context, ids []string) ([]Item, error)
}

// LookupFunc adapts a function to Lookup
type LookupFunc func(ctx context.Context, ids []string) ([]Item, error)

func (f LookupFunc) GetItemsByIDs(ctx context.Context, ids []string) ([]Item, error) {
	return f(ctx, ids)
}

// Missing returns the requested ids with no matching item, in request order.
// A repeated unknown id is reported once.
func Missing(requested []string, found []Item) []string {
	have := make(map[string]struct{}, len(found))
	for _, item := range found {
		have[item.ID] = struct{}{}
	}

	var missing []string
	seen := make(map[string]struct{})
	for _, id := range requested {
		if _, ok := have[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}
	return missing
}

// Unique returns ids without repeats, keeping first occurrences
func Unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// OrderByRequest arranges items in the order of ids. Items not requested are dropped.
func OrderByRequest(ids []string, items []Item) []Item {
	byID := make(map[string]Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	ordered := make([]Item, 0, len(items))
	for _, id := range Unique(ids) {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, item)
		}
	}
	return ordered
}
