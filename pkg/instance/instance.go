package instance

import "github.com/tsiki-shop/storefront-backend/pkg/env"

// ID names the running process in logs: DYNO on the platform, then HOSTNAME,
// then "local".
func ID() string {
	if id := env.Get("DYNO", ""); id != "" {
		return id
	}
	return env.Get("HOSTNAME", "local")
}
