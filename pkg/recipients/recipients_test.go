package recipients

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasanthmj/composer/pkg/storage"
	"github.com/prasanthmj/composer/pkg/validation"
)

func TestAdd(t *testing.T) {
	t.Run("normalizes and appends", func(t *testing.T) {
		s, err := Add(Set{}, To, "  Delivered@Resend.DEV ")
		require.NoError(t, err)
		assert.Equal(t, []string{"delivered@resend.dev"}, s.To)
	})

	t.Run("invalid address is rejected", func(t *testing.T) {
		orig := Set{To: []string{"a@example.com"}}
		s, err := Add(orig, CC, "not-an-address")
		assert.ErrorIs(t, err, validation.ErrInvalidFormat)
		assert.Equal(t, orig, s)
	})

	t.Run("duplicate in another field is a silent no-op", func(t *testing.T) {
		orig := Set{To: []string{"a@example.com"}}
		s, err := Add(orig, BCC, "A@example.com")
		require.NoError(t, err)
		assert.Equal(t, orig, s)
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		orig := Set{To: make([]string, 1, 4)}
		orig.To[0] = "a@example.com"
		_, err := Add(orig, To, "b@example.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"a@example.com"}, orig.To)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := Add(Set{}, Field("reply-to"), "a@example.com")
		assert.ErrorIs(t, err, ErrUnknownField)
	})
}

func TestNoAddressInTwoFields(t *testing.T) {
	fields := []Field{To, CC, BCC}
	addrs := []string{"a@example.com", "B@example.com", "a@example.com", "c@example.com", "b@example.com"}

	s := Set{}
	for i := 0; i < 30; i++ {
		var err error
		s, err = Add(s, fields[i%len(fields)], addrs[(i*7)%len(addrs)])
		require.NoError(t, err)
	}

	counts := map[string]int{}
	for _, list := range [][]string{s.To, s.CC, s.BCC} {
		for _, a := range list {
			counts[a]++
		}
	}
	for addr, n := range counts {
		assert.Equal(t, 1, n, "address %s present %d times", addr, n)
	}
	assert.NoError(t, validation.ValidateComposition(s.Validation(), "s", "m"))
}

func TestRemove(t *testing.T) {
	s := Set{To: []string{"a@example.com", "b@example.com"}}

	out, err := Remove(s, To, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"b@example.com"}, out.To)

	out, err = Remove(s, CC, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, s.To, out.To)
	assert.Empty(t, out.CC)
}

func TestAddMultiple(t *testing.T) {
	s, skipped := AddMultiple(Set{}, CC, "a@example.com; bad, b@example.com,,a@example.com")
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, s.CC)
	require.Len(t, skipped, 1)

	var addrErr *validation.AddressError
	require.ErrorAs(t, skipped[0], &addrErr)
	assert.Equal(t, "bad", addrErr.Address)
}

func TestMove(t *testing.T) {
	t.Run("moves between fields", func(t *testing.T) {
		s := Set{To: []string{"a@example.com", "b@example.com"}}
		out, err := Move(s, "b@example.com", To, CC)
		require.NoError(t, err)
		assert.Equal(t, []string{"a@example.com"}, out.To)
		assert.Equal(t, []string{"b@example.com"}, out.CC)
	})

	t.Run("failed add keeps the original", func(t *testing.T) {
		s := Set{To: []string{"legacy-entry"}}
		out, err := Move(s, "legacy-entry", To, BCC)
		assert.Error(t, err)
		assert.Equal(t, s, out)
	})

	t.Run("same field is a no-op", func(t *testing.T) {
		s := Set{To: []string{"a@example.com"}}
		out, err := Move(s, "a@example.com", To, To)
		require.NoError(t, err)
		assert.Equal(t, s, out)
	})
}

func TestExportForSending(t *testing.T) {
	_, err := ExportForSending(Set{CC: []string{"a@example.com"}})
	assert.ErrorIs(t, err, ErrNoPrimaryRecipient)

	exp, err := ExportForSending(Set{To: []string{"delivered@resend.dev"}})
	require.NoError(t, err)
	assert.Equal(t, Export{Primary: "delivered@resend.dev"}, exp)

	exp, err = ExportForSending(Set{
		To:  []string{"a@example.com", "b@example.com"},
		CC:  []string{"c@example.com"},
		BCC: []string{"d@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", exp.Primary)
	assert.Equal(t, []string{"b@example.com"}, exp.Additional)
	assert.Equal(t, []string{"c@example.com"}, exp.CC)
	assert.Equal(t, []string{"d@example.com"}, exp.BCC)
}

func TestHelpers(t *testing.T) {
	s := Set{To: []string{"a@example.com"}, CC: []string{"b@example.com"}, BCC: []string{"c@example.com"}}
	assert.Equal(t, 3, Total(s))
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, All(s))

	cleared, err := ClearField(s, CC)
	require.NoError(t, err)
	assert.Empty(t, cleared.CC)
	assert.Len(t, s.CC, 1)

	f, err := ParseField(" BCC ")
	require.NoError(t, err)
	assert.Equal(t, BCC, f)
	_, err = ParseField("from")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestRecentList(t *testing.T) {
	ctx := context.Background()
	r := NewRecentList(storage.NewMemoryStore(), nil)

	assert.Empty(t, r.Recent(ctx))

	require.NoError(t, r.Remember(ctx, "a@example.com"))
	require.NoError(t, r.Remember(ctx, "B@example.com"))
	require.NoError(t, r.Remember(ctx, "a@example.com"))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, r.Recent(ctx))
}

func TestRecentListIsBounded(t *testing.T) {
	ctx := context.Background()
	r := NewRecentList(storage.NewMemoryStore(), nil)

	for i := 0; i < MaxRecent+10; i++ {
		require.NoError(t, r.Remember(ctx, fmt.Sprintf("user%d@example.com", i)))
	}

	recent := r.Recent(ctx)
	require.Len(t, recent, MaxRecent)
	assert.Equal(t, fmt.Sprintf("user%d@example.com", MaxRecent+9), recent[0])
}

func TestRecentListIgnoresCorruptValue(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, RecentKey, []byte("{not json")))

	r := NewRecentList(store, nil)
	assert.Empty(t, r.Recent(ctx))
	require.NoError(t, r.Remember(ctx, "a@example.com"))
	assert.Equal(t, []string{"a@example.com"}, r.Recent(ctx))
}

func TestSuggestions(t *testing.T) {
	ctx := context.Background()
	r := NewRecentList(storage.NewMemoryStore(), nil)
	require.NoError(t, r.Remember(ctx, "bob@company.com"))
	require.NoError(t, r.Remember(ctx, "bounced@resend.dev"))

	got := r.Suggestions(ctx, "bo")
	require.Len(t, got, 2)
	assert.Equal(t, Suggestion{Email: "bounced@resend.dev", Frequent: true}, got[0])
	assert.Equal(t, Suggestion{Email: "bob@company.com", Frequent: true}, got[1])

	got = r.Suggestions(ctx, "resend")
	require.Len(t, got, 3)
	assert.Equal(t, "bounced@resend.dev", got[0].Email)
	assert.Equal(t, "delivered@resend.dev", got[1].Email)
	assert.Equal(t, "Test Email (delivered)", got[1].Name)
	assert.Equal(t, "complained@resend.dev", got[2].Email)

	for i := 0; i < 15; i++ {
		require.NoError(t, r.Remember(ctx, fmt.Sprintf("x%d@example.com", i)))
	}
	assert.Len(t, r.Suggestions(ctx, ""), MaxSuggestions)
}
