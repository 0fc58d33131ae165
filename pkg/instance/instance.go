package instance

import (
	"os"

	"github.com/etchbroker/makelar-backend/pkg/env"
)

const fallbackID = "local"

// ID identifies this process in logs. MAKELAR_INSTANCE_ID
// wins, then the platform's DYNO, then the hostname.
func ID() string {
	for _, key := range []string{"MAKELAR_INSTANCE_ID", "DYNO"} {
		if id := env.Get(key, ""); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
