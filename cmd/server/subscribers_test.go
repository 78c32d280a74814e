package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickrx/internal/store"
)

func TestExportSubscribers(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "tickrx.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	_, err = st.InsertSubscriber(ctx, store.Subscriber{TS: 1700000000, Email: "a@example.com", UserAgent: "curl/8, like Gecko", Source: "hero"})
	require.NoError(t, err)
	_, err = st.InsertSubscriber(ctx, store.Subscriber{TS: 1700000060, Email: "b@example.com"})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := exportSubscribers(ctx, st, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,email,user_agent,source", lines[0])
	assert.Equal(t, `2023-11-14T22:13:20Z,a@example.com,"curl/8, like Gecko",hero`, lines[1])
	assert.Equal(t, "2023-11-14T22:14:20Z,b@example.com,,", lines[2])
}
