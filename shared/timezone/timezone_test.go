package timezone_test

import (
	"slotwise/shared/timezone"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLocation(t *testing.T) {
	t.Cleanup(func() { require.NoError(t, timezone.SetLocation("UTC")) })

	require.NoError(t, timezone.SetLocation("Asia/Jakarta"))
	assert.Equal(t, "Asia/Jakarta", timezone.Location().String())
	assert.Equal(t, "Asia/Jakarta", timezone.Now().Location().String())

	require.NoError(t, timezone.SetLocation(""))
	assert.Equal(t, time.UTC.String(), timezone.Location().String())

	assert.Error(t, timezone.SetLocation("Mars/Olympus_Mons"))
	assert.Equal(t, time.UTC.String(), timezone.Location().String())
}

func TestParseAndFormat(t *testing.T) {
	t.Cleanup(func() { require.NoError(t, timezone.SetLocation("UTC")) })
	require.NoError(t, timezone.SetLocation("Asia/Jakarta"))

	parsed, err := timezone.Parse(time.DateOnly, "2024-01-10")
	require.NoError(t, err)

	// midnight in Jakarta is the previous evening in UTC
	assert.Equal(t, time.Date(2024, 1, 9, 17, 0, 0, 0, time.UTC), parsed.UTC())
	assert.Equal(t, "2024-01-10", timezone.Format(parsed, time.DateOnly))
	assert.Equal(t, "2024-01-10 07:00", timezone.Format(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), "2006-01-02 15:04"))

	_, err = timezone.Parse(time.DateOnly, "10/01/2024")
	assert.Error(t, err)
}
