package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coach-hub/science-coach-hub/internal/application/command"
	"github.com/coach-hub/science-coach-hub/internal/application/query"
	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
	"github.com/coach-hub/science-coach-hub/internal/domain/reward"
	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
	"github.com/coach-hub/science-coach-hub/pkg/logger"
)

// maxBodyBytes bounds request bodies; lesson imports are the largest
// legitimate payload.
const maxBodyBytes = 1 << 20

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot handles the root endpoint.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Endpoint not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "science-coach-hub",
		"version": "v1",
		"status":  "running",
		"uptime":  s.Uptime().String(),
	})
}

// handleHealth reports overall service health with per-dependency detail.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.deps.ReadinessChecks))
	healthy := true
	for name, check := range s.deps.ReadinessChecks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
		"uptime": s.Uptime().String(),
	})
}

// handleReady reports readiness; any failing dependency makes the whole
// service not ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for name, check := range s.deps.ReadinessChecks {
		if err := check(ctx); err != nil {
			s.logger.Warn("readiness check failed",
				logger.String("dependency", name),
				logger.Err(err),
			)
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "Service dependency unavailable: "+name)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive is the liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// CHAT TURN
// ══════════════════════════════════════════════════════════════════════════════

type chatTurnRequest struct {
	// LessonID selects the current lesson by catalog ID.
	LessonID string `json:"lesson_id"`

	// LessonSlug selects the current lesson by slug when no ID matches.
	LessonSlug string `json:"lesson_slug"`

	Message string `json:"message"`

	// History is the prior conversation, oldest first. The legacy role
	// "bot" is accepted as an alias for "assistant".
	History []chatTurnMessage `json:"history"`
}

type chatTurnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTurnResponse struct {
	Reply             string   `json:"reply"`
	Tasks             []string `json:"tasks,omitempty"`
	ObjectiveMet      bool     `json:"objective_met"`
	HeuristicOverride bool     `json:"heuristic_override,omitempty"`
	AlreadyCompleted  bool     `json:"already_completed,omitempty"`
	Token             string   `json:"token,omitempty"`
	CoinsAwarded      int      `json:"coins_awarded"`
	CoinBalance       int      `json:"coin_balance"`
}

// handleChatTurn runs one coaching turn: model call, completion decision,
// reward grant.
func (s *Server) handleChatTurn(w http.ResponseWriter, r *http.Request) {
	student, ok := s.resolveStudent(w, r)
	if !ok {
		return
	}

	var req chatTurnRequest
	if !decodeBody(w, r, &req) {
		return
	}

	history := make([]command.TurnMessage, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, command.TurnMessage{Role: m.Role, Content: m.Content})
	}

	result, err := s.deps.SendMessageHandler.Handle(r.Context(), command.SendMessageCommand{
		StudentID:   student.ID,
		StudentName: student.Name,
		LessonID:    req.LessonID,
		LessonSlug:  req.LessonSlug,
		Message:     req.Message,
		History:     history,
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatTurnResponse{
		Reply:             result.Reply,
		Tasks:             result.Tasks,
		ObjectiveMet:      result.ObjectiveMet,
		HeuristicOverride: result.HeuristicOverride,
		AlreadyCompleted:  result.AlreadyCompleted,
		Token:             result.Token,
		CoinsAwarded:      result.CoinsAwarded,
		CoinBalance:       result.CoinBalance,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD, BALANCE, LESSONS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard?subject=X&limit=N.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), query.GetLeaderboardQuery{
		Subject: getQueryParam(r, "subject", ""),
		Limit:   getQueryParamInt(r, "limit", 0),
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetBalance handles GET /api/v1/students/{id}/balance?subject=X.
func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")
	if studentID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Student ID is required")
		return
	}

	result, err := s.deps.GetBalanceHandler.Handle(r.Context(), query.GetBalanceQuery{
		StudentID: studentID,
		Subject:   getQueryParam(r, "subject", ""),
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type lessonView struct {
	ID         string   `json:"id"`
	Subject    string   `json:"subject"`
	Title      string   `json:"title"`
	Objectives []string `json:"objectives"`
	Slug       string   `json:"slug"`
}

func toLessonView(l lesson.Lesson) lessonView {
	return lessonView{
		ID:         l.ID,
		Subject:    l.Subject,
		Title:      l.Title,
		Objectives: l.Objectives,
		Slug:       l.Slug,
	}
}

// handleListLessons handles GET /api/v1/lessons?subject=X.
func (s *Server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListLessonsHandler.Handle(r.Context(), query.ListLessonsQuery{
		Subject: getQueryParam(r, "subject", ""),
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	lessons := make([]lessonView, 0, len(result.Lessons))
	for _, l := range result.Lessons {
		lessons = append(lessons, toLessonView(l))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lessons":  lessons,
		"subjects": result.Subjects,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN: COINS & REWARDS
// ══════════════════════════════════════════════════════════════════════════════

type adjustCoinsRequest struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Subject     string `json:"subject"`
	Operation   string `json:"operation"`
	Amount      int    `json:"amount"`
}

// handleAdjustCoins handles POST /api/v1/admin/coins.
func (s *Server) handleAdjustCoins(w http.ResponseWriter, r *http.Request) {
	var req adjustCoinsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.AdjustCoinsHandler.Handle(r.Context(), command.AdjustCoinsCommand{
		StudentID:   req.StudentID,
		StudentName: req.StudentName,
		Subject:     req.Subject,
		Operation:   reward.Operation(strings.ToLower(strings.TrimSpace(req.Operation))),
		Amount:      req.Amount,
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"delta":       result.Delta,
		"new_balance": result.NewBalance,
	})
}

type clearRewardsRequest struct {
	StudentID string `json:"student_id"`
	Subject   string `json:"subject"`
}

// handleClearRewards handles POST /api/v1/admin/rewards/clear.
func (s *Server) handleClearRewards(w http.ResponseWriter, r *http.Request) {
	var req clearRewardsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.ClearRewardsHandler.Handle(r.Context(), command.ClearRewardsCommand{
		StudentID: req.StudentID,
		Subject:   req.Subject,
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"removed_count":  result.RemovedCount,
		"removed_coins":  result.RemovedCoins,
		"new_balance":    result.NewBalance,
		"ledger_deleted": result.LedgerDeleted,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN: PROGRESS LOG
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress handles GET /api/v1/admin/progress?limit=N.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetProgressHandler.Handle(r.Context(), query.GetProgressQuery{
		Limit: getQueryParamInt(r, "limit", 0),
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type purgeProgressRequest struct {
	EntryIDs []string `json:"entry_ids"`
	All      bool     `json:"all"`
}

// handlePurgeProgress handles DELETE /api/v1/admin/progress.
func (s *Server) handlePurgeProgress(w http.ResponseWriter, r *http.Request) {
	var req purgeProgressRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.PurgeProgressHandler.Handle(r.Context(), command.PurgeProgressCommand{
		EntryIDs: req.EntryIDs,
		All:      req.All,
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"removed": result.Removed})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN: LESSON CATALOG
// ══════════════════════════════════════════════════════════════════════════════

type saveLessonRequest struct {
	ID         string   `json:"id"`
	Subject    string   `json:"subject"`
	Title      string   `json:"title"`
	Objectives []string `json:"objectives"`
}

// handleSaveLesson handles POST /api/v1/admin/lessons (create or update).
func (s *Server) handleSaveLesson(w http.ResponseWriter, r *http.Request) {
	var req saveLessonRequest
	if !decodeBody(w, r, &req) {
		return
	}

	saved, err := s.deps.ManageLessonsHandler.Save(r.Context(), command.SaveLessonCommand{
		Lesson: lesson.Lesson{
			ID:         req.ID,
			Subject:    req.Subject,
			Title:      req.Title,
			Objectives: req.Objectives,
		},
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toLessonView(*saved))
}

// handleDeleteLesson handles DELETE /api/v1/admin/lessons/{id}.
func (s *Server) handleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	lessonID := r.PathValue("id")
	if lessonID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Lesson ID is required")
		return
	}

	err := s.deps.ManageLessonsHandler.Delete(r.Context(), command.DeleteLessonCommand{LessonID: lessonID})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": lessonID})
}

type importLessonsRequest struct {
	Markdown string `json:"markdown"`
}

// handleImportLessons handles POST /api/v1/admin/lessons/import. The body
// is either JSON with a "markdown" field or the raw markdown document
// itself (Content-Type: text/markdown or text/plain).
func (s *Server) handleImportLessons(w http.ResponseWriter, r *http.Request) {
	var markdown string

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var req importLessonsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		markdown = req.Markdown
	} else {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
			return
		}
		markdown = string(body)
	}

	result, err := s.deps.ManageLessonsHandler.Import(r.Context(), command.ImportLessonsCommand{Markdown: markdown})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"imported": result.Imported})
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HANDLER HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return false
	}
	return true
}

// writeCommandError maps application errors onto HTTP status codes.
func (s *Server) writeCommandError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsUnauthorized(err):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case shared.IsConfiguration(err):
		writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "Completion provider is not configured")
	case errors.Is(err, shared.ErrTimeout):
		writeJSONError(w, http.StatusGatewayTimeout, "provider_timeout", "Completion provider timed out")
	case shared.IsProviderFailure(err):
		writeJSONError(w, http.StatusBadGateway, "provider_error", "Completion provider request failed")
	default:
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
