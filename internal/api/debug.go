package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const diagnosticsTimeout = 8 * time.Second

type databaseInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// notionReport tells whether the configured database answers and which
// databases the integration can see, so a wrong id can be spotted.
type notionReport struct {
	Reachable   bool           `json:"reachable"`
	Error       string         `json:"error,omitempty"`
	Databases   []databaseInfo `json:"databases"`
	SearchError string         `json:"searchError,omitempty"`
}

func (s *Server) handleDebugNotion(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), diagnosticsTimeout)
	defer cancel()

	report := notionReport{Databases: []databaseInfo{}}

	// Both checks always run; their failures are part of the report.
	var g errgroup.Group
	g.Go(func() error {
		if err := s.diag.Ping(ctx); err != nil {
			report.Error = err.Error()
			return nil
		}
		report.Reachable = true
		return nil
	})
	var found []databaseInfo
	g.Go(func() error {
		dbs, err := s.diag.SearchDatabases(ctx)
		if err != nil {
			report.SearchError = err.Error()
			return nil
		}
		for _, db := range dbs {
			info := databaseInfo{ID: db.ID}
			if len(db.Title) > 0 {
				info.Title = db.Title[0].PlainText
			}
			found = append(found, info)
		}
		return nil
	})
	_ = g.Wait()

	if found != nil {
		report.Databases = found
	}
	if !report.Reachable {
		s.log.Warn("notion diagnostics failed", "err", report.Error)
	}
	c.JSON(http.StatusOK, report)
}
