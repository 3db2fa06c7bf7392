package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pagetext/pagetext/internal/api"
	"github.com/pagetext/pagetext/internal/config"
	"github.com/pagetext/pagetext/internal/svcctx"
)

// ConfigEndpoint handles GET /api/config: the effective configuration
// after file, environment, and default merging.
type ConfigEndpoint struct{}

var _ api.Endpoint = (*ConfigEndpoint)(nil)

func (e *ConfigEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/config", e.handler
}

func (e *ConfigEndpoint) RequiresEngine() bool { return false }

func (e *ConfigEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	cfgMgr := svcctx.ConfigFrom(r.Context())
	if cfgMgr == nil {
		writeError(w, http.StatusServiceUnavailable, "config not initialized")
		return
	}
	writeJSON(w, http.StatusOK, cfgMgr.Get())
}

func (e *ConfigEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the server's effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var cfg config.Config
			if err := client.Get(cmd.Context(), "/api/config", &cfg); err != nil {
				return err
			}
			return api.Output(cfg)
		},
	}
}
