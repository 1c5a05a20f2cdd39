package conversion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe_Disabled(t *testing.T) {
	d := Describe(Settings{TrackedEvents: []string{"signup"}}, Result{DeadlineAt: time.Now()})

	assert.False(t, d.Enabled)
	assert.Equal(t, NoTrackingMessage, d.Message)
	assert.Empty(t, d.TrackedEvents)
	assert.Nil(t, d.DeadlineAt)
	assert.Equal(t, []string{NoTrackingMessage}, d.Lines())
}

func TestDescribe_Enabled(t *testing.T) {
	entry := mustTime(t, "2024-01-01T00:00:00Z")
	s := signupSettings()
	res := Evaluate(s, Window{EntryAt: entry})

	d := Describe(s, res)

	assert.True(t, d.Enabled)
	assert.Equal(t, []string{"signup"}, d.TrackedEvents)
	assert.Equal(t, "3 Days", d.TimeLimit)
	require.NotNil(t, d.DeadlineAt)
	assert.Equal(t, mustTime(t, "2024-01-04T00:00:00Z"), *d.DeadlineAt)
	assert.Equal(t, "Tracked events:\n  - signup\nDeadline: 2024-01-04T00:00:00Z (3 Days)", d.String())
}

func TestDescribe_DoesNotAliasSettings(t *testing.T) {
	s := signupSettings()
	d := Describe(s, Result{})
	d.TrackedEvents[0] = "changed"
	assert.Equal(t, "signup", s.TrackedEvents[0])
}
