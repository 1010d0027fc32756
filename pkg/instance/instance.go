package instance

import "github.com/commercive/commerce-sync/pkg/env"

// GetID returns the process instance identifier used in startup logs.
func GetID() string {
	if id := env.Get("DYNO", ""); id != "" {
		return id
	}
	return env.Get("HOSTNAME", "local")
}
