// Package validation checks addresses, subjects and message bodies before a
// composition is handed to the send operation.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxAddressLength = 254
	MaxSubjectLength = 200
	MaxMessageLength = 50000
)

var (
	ErrEmptyAddress       = errors.New("email address is required")
	ErrInvalidFormat      = errors.New("invalid email format")
	ErrAddressTooLong     = errors.New("email address is too long")
	ErrNoRecipients       = errors.New("at least one recipient is required")
	ErrDuplicateRecipient = errors.New("duplicate recipients found")
	ErrSubjectRequired    = errors.New("subject is required")
	ErrSubjectTooLong     = errors.New("subject is too long (max 200 characters)")
	ErrMessageRequired    = errors.New("message content is required")
	ErrMessageTooLong     = errors.New("message is too long (max 50,000 characters)")
)

var addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var testDomains = []string{"resend.dev", "example.com", "test.com"}

// AddressError annotates an address failure with the offending address.
type AddressError struct {
	Address string
	Err     error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid email %q: %v", e.Address, e.Err)
}

func (e *AddressError) Unwrap() error { return e.Err }

// Recipients is the read-only view of the three address fields validated
// together by ValidateComposition.
type Recipients struct {
	To  []string
	CC  []string
	BCC []string
}

// ValidateEmail checks a single address.
func ValidateEmail(address string) error {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return ErrEmptyAddress
	}
	if !addressPattern.MatchString(trimmed) {
		return ErrInvalidFormat
	}
	if utf8.RuneCountInString(trimmed) > MaxAddressLength {
		return ErrAddressTooLong
	}
	return nil
}

// ValidateEmails checks every address in the list and returns the first
// failure wrapped in an *AddressError.
func ValidateEmails(addresses []string) error {
	if len(addresses) == 0 {
		return ErrNoRecipients
	}
	for _, addr := range addresses {
		if err := ValidateEmail(addr); err != nil {
			return &AddressError{Address: addr, Err: err}
		}
	}
	return nil
}

// ValidateSubject checks that the subject is present and within bounds.
func ValidateSubject(subject string) error {
	trimmed := strings.TrimSpace(subject)
	if trimmed == "" {
		return ErrSubjectRequired
	}
	if utf8.RuneCountInString(trimmed) > MaxSubjectLength {
		return ErrSubjectTooLong
	}
	return nil
}

// ValidateMessage checks that the message body is present and within bounds.
func ValidateMessage(message string) error {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return ErrMessageRequired
	}
	if utf8.RuneCountInString(trimmed) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// ValidateComposition runs every check in order and stops at the first failure.
// The error text is meant to be shown to the user as is.
func ValidateComposition(r Recipients, subject, message string) error {
	if err := ValidateEmails(r.To); err != nil {
		return err
	}
	if len(r.CC) > 0 {
		if err := ValidateEmails(r.CC); err != nil {
			return err
		}
	}
	if len(r.BCC) > 0 {
		if err := ValidateEmails(r.BCC); err != nil {
			return err
		}
	}

	total := len(r.To) + len(r.CC) + len(r.BCC)
	seen := make(map[string]struct{}, total)
	for _, field := range [][]string{r.To, r.CC, r.BCC} {
		for _, addr := range field {
			seen[addr] = struct{}{}
		}
	}
	if len(seen) != total {
		return ErrDuplicateRecipient
	}

	if err := ValidateSubject(subject); err != nil {
		return err
	}
	return ValidateMessage(message)
}

// ParseAddressList splits a raw "a@x.com, b@y.com; c@z.com" string into
// trimmed, non-empty tokens. Tokens are not validated.
func ParseAddressList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsTestAddress reports whether the address belongs to one of the sandbox
// domains that never reach a real inbox.
func IsTestAddress(address string) bool {
	for _, domain := range testDomains {
		if strings.HasSuffix(address, "@"+domain) {
			return true
		}
	}
	return false
}
