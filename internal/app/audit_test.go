package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Parley/internal/domain"
)

func TestAuditLogRecord(t *testing.T) {
	audit, err := NewAuditLog()
	require.NoError(t, err)
	defer audit.Close()

	for i := 0; i < 3; i++ {
		err := audit.Record(domain.PrivateMessage{
			Author:    "alice",
			Recipient: "bob",
			Body:      "psst",
			Timestamp: time.Now(),
		})
		require.NoError(t, err)
	}
	require.NoError(t, audit.Record(domain.PrivateMessage{
		Author:    "bob",
		Recipient: "alice",
		Body:      "what",
		Timestamp: time.Now(),
	}))

	n, err := audit.CountFor("alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = audit.CountFor("carol")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
