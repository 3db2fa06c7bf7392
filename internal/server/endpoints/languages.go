package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pagetext/pagetext/internal/api"
	"github.com/pagetext/pagetext/internal/config"
	"github.com/pagetext/pagetext/internal/engine"
	"github.com/pagetext/pagetext/internal/svcctx"
)

// LanguagesResponse lists OCR capabilities of the active engine.
type LanguagesResponse struct {
	Engine       string         `json:"engine"`
	Languages    []string       `json:"languages"`
	PageSegModes map[int]string `json:"page_seg_modes"`
}

// LanguagesEndpoint handles GET /api/languages.
type LanguagesEndpoint struct{}

var _ api.Endpoint = (*LanguagesEndpoint)(nil)

func (e *LanguagesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/languages", e.handler
}

func (e *LanguagesEndpoint) RequiresEngine() bool { return true }

func (e *LanguagesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	registry := svcctx.EnginesFrom(r.Context())
	if registry == nil {
		writeError(w, http.StatusServiceUnavailable, "engine registry not initialized")
		return
	}
	eng, err := registry.Default()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	resp := LanguagesResponse{
		Engine:       eng.Name(),
		PageSegModes: config.PageSegModes,
	}
	if lister, ok := eng.(engine.LanguageLister); ok {
		langs, err := lister.InstalledLanguages()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list languages: %v", err))
			return
		}
		resp.Languages = langs
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *LanguagesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List installed OCR language packs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp LanguagesResponse
			if err := client.Get(cmd.Context(), "/api/languages", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
