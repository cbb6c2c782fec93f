// Package timezone pins wall-clock handling to the application timezone (APP_TIMEZONE,
// an IANA name such as "Asia/Jakarta"). Requested dates and the changefeed timestamps are
// read and written through it so the same calendar day is seen everywhere.
package timezone

import (
	"fmt"
	"slotwise/config"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	mu       sync.RWMutex
	location *time.Location
	loadOnce sync.Once
)

// SetLocation switches the application timezone. An empty name means UTC.
func SetLocation(name string) error {
	if name == "" {
		name = "UTC"
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", name, err)
	}

	mu.Lock()
	location = loc
	mu.Unlock()

	return nil
}

// Location falls back to the configured timezone on first use, then to UTC.
func Location() *time.Location {
	loadOnce.Do(func() {
		mu.RLock()
		set := location != nil
		mu.RUnlock()

		if set {
			return
		}

		name := config.Get().App.Timezone
		if err := SetLocation(name); err != nil {
			log.Error().Err(err).Str("timezone", name).Msg("Falling back to UTC")

			_ = SetLocation("UTC")

			return
		}

		log.Info().Str("timezone", Location().String()).Msg("Application timezone initialized")
	})

	mu.RLock()
	defer mu.RUnlock()

	return location
}

func Now() time.Time {
	return time.Now().In(Location())
}

// Parse reads value as wall-clock time in the application timezone.
func Parse(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, Location()) //nolint:wrapcheck
}

func Format(t time.Time, layout string) string {
	return t.In(Location()).Format(layout)
}
