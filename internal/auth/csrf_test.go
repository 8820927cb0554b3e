package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFRoundTrip(t *testing.T) {
	m := newManager(t, nil)
	s, _, err := m.Create()
	require.NoError(t, err)

	token, err := m.IssueCSRF(s)
	require.NoError(t, err)
	require.Len(t, token, 64) // 32 random bytes, hex encoded

	assert.True(t, m.ValidateCSRF(s, token))
	// Non-destructive validation: the token stays live within its window
	assert.True(t, m.ValidateCSRF(s, token))
	assert.False(t, m.ValidateCSRF(s, "wrong-token"))
}

func TestCSRFValidate_NoTokenIssued(t *testing.T) {
	m := newManager(t, nil)
	s, _, err := m.Create()
	require.NoError(t, err)

	assert.False(t, m.ValidateCSRF(s, "anything"))
}

func TestCSRFValidate_DifferentSession(t *testing.T) {
	m := newManager(t, nil)
	s1, _, err := m.Create()
	require.NoError(t, err)
	s2, _, err := m.Create()
	require.NoError(t, err)

	token, err := m.IssueCSRF(s1)
	require.NoError(t, err)
	_, err = m.IssueCSRF(s2)
	require.NoError(t, err)

	// A token validates only against the session that issued it
	assert.True(t, m.ValidateCSRF(s1, token))
	assert.False(t, m.ValidateCSRF(s2, token))
}

func TestCSRFValidate_Expired(t *testing.T) {
	clock := newFakeClock()
	m := newManager(t, clock)
	s, _, err := m.Create()
	require.NoError(t, err)

	token, err := m.IssueCSRF(s)
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Minute)

	assert.False(t, m.ValidateCSRF(s, token))
	// Expired token is cleared on observation; reissuing starts fresh
	fresh, err := m.IssueCSRF(s)
	require.NoError(t, err)
	assert.True(t, m.ValidateCSRF(s, fresh))
}

func TestCSRFReissue_OverwritesPriorToken(t *testing.T) {
	m := newManager(t, nil)
	s, _, err := m.Create()
	require.NoError(t, err)

	first, err := m.IssueCSRF(s)
	require.NoError(t, err)
	second, err := m.IssueCSRF(s)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.False(t, m.ValidateCSRF(s, first))
	assert.True(t, m.ValidateCSRF(s, second))
}
