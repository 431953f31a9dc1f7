package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abelaba/job-parser/internal/config"
	"github.com/abelaba/job-parser/internal/domain"
	"github.com/abelaba/job-parser/internal/store"
)

// settingsRequest writes only the fields present in the body.
type settingsRequest struct {
	ProviderAPIKey *string `json:"providerAPIKey"`
	DatabaseAPIKey *string `json:"databaseAPIKey"`
	DatabaseID     *string `json:"databaseId"`
	BaseURL        *string `json:"baseURL" binding:"omitempty,url"`
	ResumeText     *string `json:"resumeText"`
}

func (r settingsRequest) values() map[string]string {
	out := make(map[string]string)
	set := func(key string, v *string) {
		if v != nil {
			out[key] = *v
		}
	}
	set(store.KeyProviderAPIKey, r.ProviderAPIKey)
	set(store.KeyDatabaseAPIKey, r.DatabaseAPIKey)
	if r.DatabaseID != nil {
		out[store.KeyDatabaseID] = config.NormalizeNotionID(*r.DatabaseID)
	}
	set(store.KeyBaseURL, r.BaseURL)
	set(store.KeyResumeText, r.ResumeText)
	return out
}

// masked hides the API keys; the rest is returned as stored.
func masked(st domain.Settings) domain.Settings {
	st.ProviderAPIKey = config.Mask(st.ProviderAPIKey)
	st.DatabaseAPIKey = config.Mask(st.DatabaseAPIKey)
	return st
}

func (s *Server) handleGetSettings(c *gin.Context) {
	st, err := s.settings.Settings(c.Request.Context())
	if err != nil {
		s.log.Error("read settings", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, masked(st))
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if err := s.settings.SetMany(c.Request.Context(), req.values()); err != nil {
		s.log.Error("write settings", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	st, err := s.settings.Settings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, masked(st))
}
