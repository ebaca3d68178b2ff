package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailsync/pkg/types"
)

func TestRunClosesStoreWhenCommandFails(t *testing.T) {
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "mail.db"))
	t.Setenv("NATS_URL", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)

	err := run([]string{"search", "is:sideways"})
	require.ErrorIs(t, err, types.ErrInvalidQuery)

	require.NotNil(t, st)
	_, err = st.ListAccounts(context.Background())
	assert.ErrorContains(t, err, "database is closed")
}
