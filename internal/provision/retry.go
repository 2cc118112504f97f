package provision

import (
	"fmt"
	"time"

	"github.com/open-edge-platform/docker-provisioner/internal/utils/logger"
)

// sleep is a variable so retry timing can be observed in tests.
var sleep = time.Sleep

// Retry invokes op up to attempts times total, sleeping backoff between
// attempts. The backoff is constant, not exponential, and the count includes
// the first try. The final failure is returned when all attempts exhaust.
func Retry(attempts int, backoff time.Duration, desc string, op func() error) error {
	log := logger.Logger()
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			if attempt > 1 {
				log.Infof("%s succeeded on attempt %d/%d", desc, attempt, attempts)
			}
			return nil
		}
		if attempt < attempts {
			log.Warnf("%s failed (attempt %d/%d): %v, retrying in %s", desc, attempt, attempts, err, backoff)
			sleep(backoff)
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", desc, attempts, err)
}
