package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "tickrx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	created, err := s.InsertSubscriber(ctx, Subscriber{TS: 100, Email: "a@example.com", UserAgent: "curl/8", Source: "hero"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.InsertSubscriber(ctx, Subscriber{TS: 200, Email: " b@example.com "})
	require.NoError(t, err)
	assert.True(t, created)

	subs, err := s.ListSubscribers(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "a@example.com", subs[0].Email)
	assert.Equal(t, "hero", subs[0].Source)
	assert.Equal(t, "curl/8", subs[0].UserAgent)
	assert.NotEmpty(t, subs[0].ID)
	assert.NotEmpty(t, subs[0].CreatedAt)
	assert.Equal(t, "b@example.com", subs[1].Email)

	page, err := s.ListSubscribers(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b@example.com", page[0].Email)
}

func TestListPagesSameSecond(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := s.InsertSubscriber(ctx, Subscriber{TS: 500, Email: fmt.Sprintf("u%d@example.com", i)})
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	for offset := 0; ; offset += 2 {
		page, err := s.ListSubscribers(ctx, 2, offset)
		require.NoError(t, err)
		for _, sub := range page {
			assert.False(t, seen[sub.ID], "row %s listed twice", sub.Email)
			seen[sub.ID] = true
		}
		if len(page) < 2 {
			break
		}
	}
	assert.Len(t, seen, 7)

	all, err := s.ListSubscribers(ctx, 0, 0)
	require.NoError(t, err)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestDuplicateEmailIgnored(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	created, err := s.InsertSubscriber(ctx, Subscriber{Email: "Dup@Example.com"})
	require.NoError(t, err)
	require.True(t, created)

	created, err = s.InsertSubscriber(ctx, Subscriber{Email: "dup@example.com", Source: "footer"})
	require.NoError(t, err)
	assert.False(t, created)

	n, err := s.CountSubscribers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInsertRejectsEmptyEmail(t *testing.T) {
	s := openTemp(t)
	_, err := s.InsertSubscriber(context.Background(), Subscriber{Email: "  "})
	assert.Error(t, err)
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickrx.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.InsertSubscriber(ctx, Subscriber{Email: "keep@example.com"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.CountSubscribers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilStore(t *testing.T) {
	var s *Store
	_, err := s.InsertSubscriber(context.Background(), Subscriber{Email: "x@example.com"})
	assert.Error(t, err)
	assert.NoError(t, s.Close())
}
