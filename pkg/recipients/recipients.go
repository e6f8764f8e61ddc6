// Package recipients manages the to/cc/bcc address sets of a composition.
//
// Sets are values: every operation returns a new Set and never mutates its
// argument, so a failed operation always leaves the caller's set untouched.
// An address appears in at most one field at a time.
package recipients

import (
	"errors"
	"strings"

	"github.com/prasanthmj/composer/pkg/validation"
)

// Field names one of the three address collections.
type Field string

const (
	To  Field = "to"
	CC  Field = "cc"
	BCC Field = "bcc"
)

var (
	ErrUnknownField       = errors.New("unknown recipient field")
	ErrNoPrimaryRecipient = errors.New("at least one recipient is required")
)

// ParseField maps user input ("to", "CC", ...) to a Field.
func ParseField(s string) (Field, error) {
	switch Field(strings.ToLower(strings.TrimSpace(s))) {
	case To:
		return To, nil
	case CC:
		return CC, nil
	case BCC:
		return BCC, nil
	}
	return "", ErrUnknownField
}

// Set holds normalized (trimmed, lower-cased) addresses per field.
type Set struct {
	To  []string `json:"to"`
	CC  []string `json:"cc"`
	BCC []string `json:"bcc"`
}

// Export is the flattened form handed to the single-recipient send operation.
// Additional holds the to addresses after the primary one.
type Export struct {
	Primary    string   `json:"primary"`
	Additional []string `json:"additional,omitempty"`
	CC         []string `json:"cc,omitempty"`
	BCC        []string `json:"bcc,omitempty"`
}

// Normalize trims and lower-cases an address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Clone returns a deep copy of the set.
func (s Set) Clone() Set {
	return Set{
		To:  cloneList(s.To),
		CC:  cloneList(s.CC),
		BCC: cloneList(s.BCC),
	}
}

// Get returns the addresses of one field.
func (s Set) Get(f Field) []string {
	switch f {
	case To:
		return s.To
	case CC:
		return s.CC
	case BCC:
		return s.BCC
	}
	return nil
}

// Contains reports whether the normalized address is present in any field.
func (s Set) Contains(address string) bool {
	addr := Normalize(address)
	for _, list := range [][]string{s.To, s.CC, s.BCC} {
		for _, a := range list {
			if a == addr {
				return true
			}
		}
	}
	return false
}

// Validation converts the set to the shape validated by ValidateComposition.
func (s Set) Validation() validation.Recipients {
	return validation.Recipients{To: s.To, CC: s.CC, BCC: s.BCC}
}

func (s Set) with(f Field, list []string) (Set, error) {
	out := s.Clone()
	switch f {
	case To:
		out.To = list
	case CC:
		out.CC = list
	case BCC:
		out.BCC = list
	default:
		return s, ErrUnknownField
	}
	return out, nil
}

// Add validates and appends an address to a field. Adding an address that is
// already present in any field returns the set unchanged and no error.
func Add(s Set, f Field, address string) (Set, error) {
	if _, err := ParseField(string(f)); err != nil {
		return s, err
	}
	addr := Normalize(address)
	if err := validation.ValidateEmail(addr); err != nil {
		return s, err
	}
	if s.Contains(addr) {
		return s, nil
	}
	return s.with(f, append(cloneList(s.Get(f)), addr))
}

// Remove drops an exact match from a field. Absent addresses are a no-op.
func Remove(s Set, f Field, address string) (Set, error) {
	current := s.Get(f)
	list := make([]string, 0, len(current))
	for _, a := range current {
		if a != address {
			list = append(list, a)
		}
	}
	return s.with(f, list)
}

// AddMultiple splits raw on ',' or ';' and adds every token it can. Invalid
// tokens are skipped and returned as the second value.
func AddMultiple(s Set, f Field, raw string) (Set, []error) {
	var skipped []error
	out := s
	for _, token := range validation.ParseAddressList(raw) {
		next, err := Add(out, f, token)
		if err != nil {
			skipped = append(skipped, &validation.AddressError{Address: token, Err: err})
			continue
		}
		out = next
	}
	return out, skipped
}

// Move removes the address from one field and adds it to another. If the add
// fails the original set is returned together with the error.
func Move(s Set, address string, from, to Field) (Set, error) {
	if from == to {
		return s, nil
	}
	removed, err := Remove(s, from, address)
	if err != nil {
		return s, err
	}
	moved, err := Add(removed, to, address)
	if err != nil {
		return s, err
	}
	return moved, nil
}

// ClearField empties one field.
func ClearField(s Set, f Field) (Set, error) {
	return s.with(f, nil)
}

// Total counts addresses across all fields.
func Total(s Set) int {
	return len(s.To) + len(s.CC) + len(s.BCC)
}

// All returns every address once, in to, cc, bcc order.
func All(s Set) []string {
	seen := make(map[string]struct{}, Total(s))
	var out []string
	for _, list := range [][]string{s.To, s.CC, s.BCC} {
		for _, a := range list {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

// ExportForSending flattens the set for the send operation. Only Primary is
// carried by a single call; the other lists tell the caller what is left.
func ExportForSending(s Set) (Export, error) {
	if len(s.To) == 0 {
		return Export{}, ErrNoPrimaryRecipient
	}
	exp := Export{Primary: s.To[0]}
	if len(s.To) > 1 {
		exp.Additional = cloneList(s.To[1:])
	}
	if len(s.CC) > 0 {
		exp.CC = cloneList(s.CC)
	}
	if len(s.BCC) > 0 {
		exp.BCC = cloneList(s.BCC)
	}
	return exp, nil
}

func cloneList(list []string) []string {
	if list == nil {
		return nil
	}
	return append([]string(nil), list...)
}
