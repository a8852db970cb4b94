package post

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkUserDeleted_RemarkKeepsBackup(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := &Post{Raw: "original content"}

	p.MarkUserDeleted("(removed)", now)
	p.MarkUserDeleted("(removed)", now.Add(time.Minute))

	assert.Equal(t, "(removed)", p.Raw)
	require.NotNil(t, p.RawBackup)
	assert.Equal(t, "original content", *p.RawBackup)

	p.RestoreUserDeleted(now.Add(2 * time.Minute))
	assert.Equal(t, "original content", p.Raw)
	assert.Nil(t, p.RawBackup)
	assert.False(t, p.UserDeleted)
}
