package recipients

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prasanthmj/composer/pkg/storage"
)

const (
	RecentKey      = "email_recent_recipients"
	MaxRecent      = 50
	MaxSuggestions = 10
)

// TestAddresses are the sandbox inboxes offered as suggestions.
var TestAddresses = []string{
	"delivered@resend.dev",
	"bounced@resend.dev",
	"complained@resend.dev",
}

// Suggestion is a single autocomplete entry.
type Suggestion struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Frequent bool   `json:"is_frequent,omitempty"`
	Contact  bool   `json:"is_contact"`
}

// RecentList is a bounded most-recently-used list of addresses kept in a
// key-value store. The bound is enforced here, not by the store.
type RecentList struct {
	store storage.Store
	max   int
	log   *slog.Logger
}

// NewRecentList creates a list bounded to MaxRecent entries.
func NewRecentList(store storage.Store, log *slog.Logger) *RecentList {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &RecentList{store: store, max: MaxRecent, log: log}
}

// Recent returns the stored addresses, most recent first. A missing or
// unreadable value yields an empty list.
func (r *RecentList) Recent(ctx context.Context) []string {
	data, err := r.store.Get(ctx, RecentKey)
	if err != nil {
		r.log.WarnContext(ctx, "failed to load recent recipients", slog.Any("error", err))
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		r.log.WarnContext(ctx, "failed to parse recent recipients", slog.Any("error", err))
		return nil
	}
	return list
}

// Remember moves address to the front of the list and trims it to the bound.
func (r *RecentList) Remember(ctx context.Context, address string) error {
	addr := Normalize(address)
	if addr == "" {
		return nil
	}

	list := []string{addr}
	for _, a := range r.Recent(ctx) {
		if a != addr {
			list = append(list, a)
		}
	}
	if len(list) > r.max {
		list = list[:r.max]
	}

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal recent recipients: %w", err)
	}
	if err := r.store.Set(ctx, RecentKey, data); err != nil {
		return fmt.Errorf("failed to save recent recipient: %w", err)
	}
	return nil
}

// Suggestions returns recent addresses containing input, followed by any
// matching test addresses, capped at MaxSuggestions.
func (r *RecentList) Suggestions(ctx context.Context, input string) []Suggestion {
	needle := strings.ToLower(input)

	var out []Suggestion
	seen := make(map[string]struct{})
	for _, addr := range r.Recent(ctx) {
		if strings.Contains(strings.ToLower(addr), needle) {
			out = append(out, Suggestion{Email: addr, Frequent: true})
			seen[addr] = struct{}{}
		}
	}

	for _, addr := range TestAddresses {
		if _, ok := seen[addr]; ok || !strings.Contains(addr, needle) {
			continue
		}
		local, _, _ := strings.Cut(addr, "@")
		out = append(out, Suggestion{Email: addr, Name: fmt.Sprintf("Test Email (%s)", local)})
	}

	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}
