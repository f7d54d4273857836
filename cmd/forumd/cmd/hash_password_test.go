package cmd

import (
	"bytes"
	"strings"
	"testing"

	"forum/backend/internal/infrastructure/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_FromStdin(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader("s3cret!\n"))
	rootCmd.SetArgs([]string{"hash-password"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	hash := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(hash, "$2"))
	assert.True(t, password.NewBcryptHasher(password.MinCost).Verify("s3cret!", hash))
}

func TestHashPassword_RejectsEmpty(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader("\n"))
	rootCmd.SetArgs([]string{"hash-password"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	assert.Error(t, rootCmd.Execute())
}
