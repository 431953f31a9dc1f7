package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abelaba/job-parser/internal/domain"
	"github.com/abelaba/job-parser/internal/messaging"
)

// requestTimeout bounds a job request end to end. Extraction is the slow step.
const requestTimeout = 90 * time.Second

// JSON payloads we expect from the extension.
type saveRequest struct {
	URL         string `json:"url" binding:"required,url"`
	Description string `json:"description" binding:"required"`
}

type compareRequest struct {
	Resume     string `json:"resume"`
	JobPosting string `json:"jobPosting" binding:"required"`
}

type updateRequest struct {
	Status string `json:"status" binding:"omitempty,jobstatus"`
}

type recentQuery struct {
	Status string `form:"status" binding:"omitempty,jobstatus"`
}

func (s *Server) handleMessage(c *gin.Context) {
	var msg messaging.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		s.log.Warn("undecodable message", "request_id", c.GetString(requestIDKey), "err", err)
		c.JSON(http.StatusBadRequest, messaging.Envelope{Message: messaging.Failure, Error: "invalid JSON: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	c.JSON(http.StatusOK, s.dispatcher.HandleMessage(ctx, msg))
}

func (s *Server) handleSave(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	jp, err := s.jobs.SaveJob(ctx, req.URL, req.Description)
	if err != nil {
		s.fail(c, "/api/job", err)
		return
	}
	c.JSON(http.StatusCreated, jp)
}

func (s *Server) handleCompare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	res, err := s.jobs.Compare(ctx, req.Resume, req.JobPosting)
	if err != nil {
		s.fail(c, "/api/job/compare", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleRecent(c *gin.Context) {
	var q recentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	jobs, err := s.jobs.ListSaved(c.Request.Context(), domain.Status(q.Status))
	if err != nil {
		s.fail(c, "/api/job/recent", err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (s *Server) handleStats(c *gin.Context) {
	rng := domain.StatsRange(strings.ToUpper(c.Query("range"))).Normalize()

	stats, err := s.jobs.Stats(c.Request.Context(), rng)
	if err != nil {
		s.fail(c, "/api/job/stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleStreak(c *gin.Context) {
	streak, err := s.jobs.Streak(c.Request.Context())
	if err != nil {
		s.fail(c, "/api/job/streak", err)
		return
	}
	c.JSON(http.StatusOK, streak)
}

func (s *Server) handleUpdate(c *gin.Context) {
	pageID := strings.TrimSpace(c.Param("pageID"))
	if pageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing pageID in path"})
		return
	}

	// The extension sends no body; that means "Applied".
	var req updateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	if err := s.jobs.UpdateStatus(c.Request.Context(), pageID, domain.Status(req.Status)); err != nil {
		s.fail(c, "/api/job/:pageID", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}
