package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxlabs/interviewd/internal/config"
	wshandler "github.com/voxlabs/interviewd/internal/handlers/websocket"
	"github.com/voxlabs/interviewd/internal/interview"
	"github.com/voxlabs/interviewd/internal/repository/transcript"
	"github.com/voxlabs/interviewd/pkg/Logger"
)

type Dependencies struct {
	Registry    *interview.Registry
	WSHandler   *wshandler.Handler
	Transcripts transcript.Repository
	Logger      *Logger.Logger
	Configs     *config.Settings
}

func NewServerDependencies(
	registry *interview.Registry,
	wsHandler *wshandler.Handler,
	transcripts transcript.Repository,
	logger *Logger.Logger,
	cfg *config.Settings,
) Dependencies {
	return Dependencies{
		Registry:    registry,
		WSHandler:   wsHandler,
		Transcripts: transcripts,
		Logger:      logger,
		Configs:     cfg,
	}
}

func InitializeRoutes(r *gin.Engine, dep Dependencies) {
	r.GET("/", func(ctx *gin.Context) { ctx.JSON(200, gin.H{"message": "Server healthy"}) })
	r.GET("/health", func(ctx *gin.Context) { ctx.JSON(200, gin.H{"status": "ok"}) })

	dep.WSHandler.RegisterRoutes(r)

	api := r.Group("/api")
	{
		api.GET("/sessions/:id", sessionStats(dep))
		api.POST("/sessions/:id/export", exportSession(dep))
	}

	// synthesized response audio is served straight off disk
	if dir := dep.Configs.Voice.ResponseDir; dir != "" {
		r.Static("/responses", dir)
	}
}

// sessionStats reports a session's live view without touching its state.
func sessionStats(dep Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := dep.Registry.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		view := sess.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"session_id":       view.ID,
			"state":            view.State,
			"turn_index":       view.TurnIndex,
			"position":         view.Position,
			"difficulty":       view.Difficulty,
			"interviewer_type": view.InterviewerType,
			"active":           view.Active,
			"message_count":    view.MessageCount,
			"created_at":       view.CreatedAt,
			"last_activity":    view.LastActivity,
		})
	}
}

// exportSession persists the session's conversation to the transcript store.
func exportSession(dep Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dep.Transcripts == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "transcript storage is not configured"})
			return
		}

		sess, err := dep.Registry.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		view := sess.Snapshot()
		rec, err := dep.Transcripts.Export(c.Request.Context(), transcript.ExportInput{
			SessionID:       view.ID,
			Position:        view.Position,
			Difficulty:      view.Difficulty,
			InterviewerType: view.InterviewerType,
			Turns:           view.TurnIndex,
			History:         sess.History(),
		})
		if err != nil {
			dep.Logger.Errorf("transcript export failed for session %s: %v", view.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export transcript"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":         rec.ID,
			"session_id": rec.SessionID,
			"turns":      rec.Turns,
			"created_at": rec.CreatedAt,
		})
	}
}
