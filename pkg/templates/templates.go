// Package templates stores reusable subject/body pairs and fills their
// {{variable}} placeholders.
package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prasanthmj/composer/pkg/storage"
)

// StorageKey holds the JSON array of user templates.
const StorageKey = "email_templates"

var (
	ErrTemplateNotFound    = errors.New("template not found")
	ErrCannotModifyDefault = errors.New("cannot modify default templates")
	ErrNameRequired        = errors.New("template name is required")
	ErrSubjectRequired     = errors.New("template subject is required")
	ErrBodyRequired        = errors.New("template body is required")
	ErrUnclosedPlaceholder = errors.New("template has unclosed variable placeholders")
	ErrInvalidImport       = errors.New("invalid format: expected array of templates")
)

// Template is a named subject/body pair. Built-in templates have IsDefault
// set and cannot be changed.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IsDefault bool      `json:"isDefault,omitempty"`
}

// Draft is the user-supplied part of a template.
type Draft struct {
	Name     string   `json:"name"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Patch updates the non-nil fields of a template.
type Patch struct {
	Name     *string   `json:"name,omitempty"`
	Subject  *string   `json:"subject,omitempty"`
	Body     *string   `json:"body,omitempty"`
	Category *string   `json:"category,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
}

// Variable describes one placeholder found in a template.
type Variable struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DefaultValue string `json:"defaultValue,omitempty"`
}

// ImportResult reports a batch import. Entries are imported independently.
type ImportResult struct {
	Success int      `json:"success"`
	Errors  []string `json:"errors"`
}

// Service manages built-in and user templates. User templates are persisted
// as a JSON array under StorageKey.
type Service struct {
	store storage.Store
	now   func() time.Time
	newID func() string
	log   *slog.Logger

	// serializes read-modify-write of the stored list
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for timestamps and date defaults.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a template service backed by store.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns a copy of the built-in templates.
func (s *Service) Defaults() []Template {
	out := make([]Template, len(builtins))
	for i, t := range builtins {
		t.Tags = slices.Clone(t.Tags)
		out[i] = t
	}
	return out
}

// All returns the built-in templates followed by the user templates. An
// unreadable store yields only the built-ins.
func (s *Service) All(ctx context.Context) []Template {
	custom, err := s.custom(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "failed to load templates", slog.Any("error", err))
	}
	return append(s.Defaults(), custom...)
}

// Get returns the template with id.
func (s *Service) Get(ctx context.Context, id string) (Template, error) {
	for _, t := range s.All(ctx) {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
}

// Save validates the draft and appends it as a new user template.
func (s *Service) Save(ctx context.Context, d Draft) (Template, error) {
	if err := ValidateTemplate(d); err != nil {
		return Template{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	custom, err := s.custom(ctx)
	if err != nil {
		return Template{}, err
	}

	now := s.now()
	t := Template{
		ID:        s.newID(),
		Name:      d.Name,
		Subject:   d.Subject,
		Body:      d.Body,
		Category:  d.Category,
		Tags:      slices.Clone(d.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.persist(ctx, append(custom, t)); err != nil {
		return Template{}, err
	}

	s.log.DebugContext(ctx, "template saved", slog.String("id", t.ID), slog.String("name", t.Name))
	return t, nil
}

// Update applies patch to a user template.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	custom, idx, err := s.locate(ctx, id)
	if err != nil {
		return Template{}, err
	}

	t := custom[idx]
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Subject != nil {
		t.Subject = *patch.Subject
	}
	if patch.Body != nil {
		t.Body = *patch.Body
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.Tags != nil {
		t.Tags = slices.Clone(*patch.Tags)
	}
	t.UpdatedAt = s.now()

	custom[idx] = t
	if err := s.persist(ctx, custom); err != nil {
		return Template{}, err
	}
	return t, nil
}

// Delete removes a user template.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	custom, idx, err := s.locate(ctx, id)
	if err != nil {
		return err
	}
	return s.persist(ctx, slices.Delete(custom, idx, idx+1))
}

// locate finds a user template by id, rejecting built-ins.
func (s *Service) locate(ctx context.Context, id string) ([]Template, int, error) {
	for _, t := range builtins {
		if t.ID == id {
			return nil, -1, fmt.Errorf("%w: %s", ErrCannotModifyDefault, id)
		}
	}
	custom, err := s.custom(ctx)
	if err != nil {
		return nil, -1, err
	}
	idx := slices.IndexFunc(custom, func(t Template) bool { return t.ID == id })
	if idx < 0 {
		return nil, -1, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return custom, idx, nil
}

// ByCategory returns templates whose category matches exactly.
func (s *Service) ByCategory(ctx context.Context, category string) []Template {
	var out []Template
	for _, t := range s.All(ctx) {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// Search matches query case-insensitively against name, subject, body and
// tags.
func (s *Service) Search(ctx context.Context, query string) []Template {
	q := strings.ToLower(query)
	var out []Template
	for _, t := range s.All(ctx) {
		if strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Subject), q) ||
			strings.Contains(strings.ToLower(t.Body), q) ||
			slices.ContainsFunc(t.Tags, func(tag string) bool {
				return strings.Contains(strings.ToLower(tag), q)
			}) {
			out = append(out, t)
		}
	}
	return out
}

// Export serializes the user templates as an indented JSON array.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	custom, err := s.custom(ctx)
	if err != nil {
		return nil, err
	}
	if custom == nil {
		custom = []Template{}
	}
	return json.MarshalIndent(custom, "", "  ")
}

// Import saves every valid entry of a JSON array as a new user template.
// Invalid entries are reported in the result and do not stop the batch.
func (s *Service) Import(ctx context.Context, data []byte) ImportResult {
	var res ImportResult

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			err = ErrInvalidImport
		}
		res.Errors = append(res.Errors, fmt.Sprintf("failed to parse JSON: %v", err))
		return res
	}

	for i, raw := range entries {
		var d Draft
		if err := json.Unmarshal(raw, &d); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("entry %d: %v", i, err))
			continue
		}
		if _, err := s.Save(ctx, d); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("template %q: %v", d.Name, err))
			continue
		}
		res.Success++
	}

	s.log.InfoContext(ctx, "templates imported",
		slog.Int("success", res.Success),
		slog.Int("failed", len(res.Errors)))
	return res
}

// ExtractVariables lists the distinct placeholders in subject and body in
// order of first appearance.
func (s *Service) ExtractVariables(t Template) []Variable {
	var out []Variable
	seen := make(map[string]struct{})
	for _, m := range placeholder.FindAllStringSubmatch(t.Subject+" "+t.Body, -1) {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, Variable{
			Name:         name,
			Description:  describe(name),
			DefaultValue: s.defaultValue(name),
		})
	}
	return out
}

func (s *Service) custom(ctx context.Context) ([]Template, error) {
	data, err := s.store.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var list []Template
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return list, nil
}

func (s *Service) persist(ctx context.Context, list []Template) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal templates: %w", err)
	}
	if err := s.store.Set(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("failed to save templates: %w", err)
	}
	return nil
}

var placeholder = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Apply replaces every {{key}} for the supplied variables in subject and
// body. Unknown placeholders are left untouched.
func Apply(t Template, vars map[string]string) (subject, body string) {
	subject, body = t.Subject, t.Body
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		token := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, token, vars[k])
		body = strings.ReplaceAll(body, token, vars[k])
	}
	return subject, body
}

// ValidateTemplate checks the required fields and placeholder balance. All
// failures are joined into one error.
func ValidateTemplate(d Draft) error {
	var errs []error
	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, ErrNameRequired)
	}
	if strings.TrimSpace(d.Subject) == "" {
		errs = append(errs, ErrSubjectRequired)
	}
	if strings.TrimSpace(d.Body) == "" {
		errs = append(errs, ErrBodyRequired)
	}
	content := d.Subject + d.Body
	if strings.Count(content, "{{") != strings.Count(content, "}}") {
		errs = append(errs, ErrUnclosedPlaceholder)
	}
	return errors.Join(errs...)
}

var descriptions = map[string]string{
	"name":                 "Recipient name",
	"email":                "Recipient email address",
	"subject":              "Email subject",
	"sender_name":          "Sender name",
	"company_name":         "Company name",
	"date":                 "Current date",
	"announcement_title":   "Announcement title",
	"announcement_details": "Announcement details",
	"followup_message":     "Follow-up message content",
}

func describe(name string) string {
	if d, ok := descriptions[name]; ok {
		return d
	}
	return "Variable: " + name
}

func (s *Service) defaultValue(name string) string {
	switch name {
	case "date":
		return s.now().Format("January 2, 2006")
	case "sender_name":
		return "Your Name"
	case "company_name":
		return "Your Company"
	}
	return ""
}
