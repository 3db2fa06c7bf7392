package endpoints

import (
	"github.com/pagetext/pagetext/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},

		// Extraction
		&ExtractEndpoint{},

		// Capability and configuration
		&LanguagesEndpoint{},
		&ConfigEndpoint{},
	}
}
