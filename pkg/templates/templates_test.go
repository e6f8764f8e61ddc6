package templates

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasanthmj/composer/pkg/storage"
)

var fixedNow = time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	n := 0
	svc := NewService(store,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("tpl-%d", n)
		}),
	)
	return svc, store
}

func TestApply(t *testing.T) {
	tpl := Template{Subject: "Hi {{name}}", Body: "Hello {{name}}"}

	subject, body := Apply(tpl, map[string]string{"name": "Ada"})
	assert.Equal(t, "Hi Ada", subject)
	assert.Equal(t, "Hello Ada", body)

	subject, body = Apply(tpl, nil)
	assert.Equal(t, "Hi {{name}}", subject)
	assert.Equal(t, "Hello {{name}}", body)

	_, body = Apply(Template{Body: "{{a}} {{b}} {{a}}"}, map[string]string{"a": "x"})
	assert.Equal(t, "x {{b}} x", body)

	// Keys are literal, not patterns
	_, body = Apply(Template{Body: "{{a.b}} {{axb}}"}, map[string]string{"a.b": "dot"})
	assert.Equal(t, "dot {{axb}}", body)
}

func TestAllIncludesDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	all := svc.All(ctx)
	require.Len(t, all, 3)
	for _, tpl := range all {
		assert.True(t, tpl.IsDefault)
	}

	saved, err := svc.Save(ctx, Draft{Name: "Mine", Subject: "S", Body: "B", Category: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", saved.ID)
	assert.Equal(t, fixedNow, saved.CreatedAt)
	assert.Equal(t, fixedNow, saved.UpdatedAt)
	assert.False(t, saved.IsDefault)

	all = svc.All(ctx)
	require.Len(t, all, 4)
	assert.Equal(t, "Mine", all[3].Name)
	assert.True(t, all[3].CreatedAt.Equal(fixedNow))
}

func TestAllIgnoresCorruptStore(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, StorageKey, []byte("not json")))

	assert.Len(t, svc.All(ctx), 3)
}

func TestGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tpl, err := svc.Get(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, "Welcome Email", tpl.Name)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestUpdateAndDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	saved, err := svc.Save(ctx, Draft{Name: "Mine", Subject: "S", Body: "B"})
	require.NoError(t, err)

	name := "Renamed"
	tags := []string{"x"}
	updated, err := svc.Update(ctx, saved.ID, Patch{Name: &name, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "S", updated.Subject)
	assert.Equal(t, []string{"x"}, updated.Tags)

	got, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	require.NoError(t, svc.Delete(ctx, saved.ID))
	_, err = svc.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, saved.ID), ErrTemplateNotFound)
	_, err = svc.Update(ctx, "nope", Patch{})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestDefaultsAreImmutable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	name := "x"
	_, err := svc.Update(ctx, "welcome", Patch{Name: &name})
	assert.ErrorIs(t, err, ErrCannotModifyDefault)
	assert.ErrorIs(t, svc.Delete(ctx, "followup"), ErrCannotModifyDefault)

	// Mutating a returned copy does not leak into the built-ins
	all := svc.All(ctx)
	all[0].Tags[0] = "changed"
	assert.Equal(t, "welcome", svc.Defaults()[0].Tags[0])
}

func TestValidateTemplate(t *testing.T) {
	assert.NoError(t, ValidateTemplate(Draft{Name: "n", Subject: "s {{x}}", Body: "b"}))

	err := ValidateTemplate(Draft{Name: " ", Subject: "", Body: "{{open"})
	assert.ErrorIs(t, err, ErrNameRequired)
	assert.ErrorIs(t, err, ErrSubjectRequired)
	assert.ErrorIs(t, err, ErrUnclosedPlaceholder)
	assert.NotErrorIs(t, err, ErrBodyRequired)

	_, err = (&Service{}).Save(context.Background(), Draft{Name: "n", Subject: "s"})
	assert.ErrorIs(t, err, ErrBodyRequired)
}

func TestSearchAndCategory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Save(ctx, Draft{Name: "Invoice", Subject: "Your invoice", Body: "Attached", Tags: []string{"Billing"}})
	require.NoError(t, err)

	found := svc.Search(ctx, "billing")
	require.Len(t, found, 1)
	assert.Equal(t, "Invoice", found[0].Name)

	found = svc.Search(ctx, "FOLLOW")
	require.Len(t, found, 1)
	assert.Equal(t, "followup", found[0].ID)

	assert.Len(t, svc.ByCategory(ctx, "business"), 1)
	assert.Empty(t, svc.ByCategory(ctx, "Business"))
}

func TestExtractVariables(t *testing.T) {
	svc, _ := newTestService(t)

	vars := svc.ExtractVariables(Template{
		Subject: "{{name}} on {{date}}",
		Body:    "Hi {{name}}, from {{sender_name}} about {{custom}}",
	})

	assert.Equal(t, []Variable{
		{Name: "name", Description: "Recipient name"},
		{Name: "date", Description: "Current date", DefaultValue: "March 5, 2024"},
		{Name: "sender_name", Description: "Sender name", DefaultValue: "Your Name"},
		{Name: "custom", Description: "Variable: custom"},
	}, vars)
}

func TestExportImport(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	empty, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(empty))

	res := svc.Import(ctx, []byte(`[
		{"name": "One", "subject": "S1", "body": "B1"},
		{"name": "", "subject": "S2", "body": "B2"},
		{"name": "Three", "subject": "S3 {{x", "body": "B3"},
		{"name": "Four", "subject": "S4", "body": "B4", "tags": ["t"]}
	]`))
	assert.Equal(t, 2, res.Success)
	assert.Len(t, res.Errors, 2)

	data, err := svc.Export(ctx)
	require.NoError(t, err)

	other, _ := newTestService(t)
	res = other.Import(ctx, data)
	assert.Equal(t, 2, res.Success)
	assert.Empty(t, res.Errors)
	assert.Len(t, other.All(ctx), 5)
}

func TestImportRejectsNonArray(t *testing.T) {
	svc, _ := newTestService(t)

	res := svc.Import(context.Background(), []byte(`{"name": "x"}`))
	assert.Zero(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], ErrInvalidImport.Error())

	res = svc.Import(context.Background(), []byte(`not json`))
	require.Len(t, res.Errors, 1)
}
