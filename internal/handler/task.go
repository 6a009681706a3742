package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/kanban-board/internal/auth"
	"github.com/BuzzLyutic/kanban-board/internal/metrics"
	"github.com/BuzzLyutic/kanban-board/internal/model"
	"github.com/BuzzLyutic/kanban-board/internal/service"
	"github.com/BuzzLyutic/kanban-board/pkg/respond"
)

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger, m *metrics.Metrics) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
		metrics: m,
	}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		handleErrors(w, r, h.logger, auth.ErrUnauthorized)
		return
	}

	tasks, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		handleErrors(w, r, h.logger, auth.ErrUnauthorized)
		return
	}

	if r.ContentLength == 0 {
		respond.Error(w, r, http.StatusBadRequest, "empty request body")
		return
	}

	var req model.CreateTaskInput
	if err := respond.Decode(r, &req); err != nil {
		h.logger.Debug("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}

	idempKey := r.Header.Get("Idempotency-Key")
	task, err := h.service.Create(r.Context(), userID, req, idempKey)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	h.count(metrics.OpCreate)

	w.Header().Set("Location", "/tasks/"+task.ID)
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		handleErrors(w, r, h.logger, auth.ErrUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	task, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

// Update принимает частичный объект: отсутствующие поля не меняются.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		handleErrors(w, r, h.logger, auth.ErrUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	var patch model.TaskPatch
	if err := respond.Decode(r, &patch); err != nil {
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}

	task, err := h.service.Update(r.Context(), userID, id, patch)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	h.count(metrics.OpUpdate)

	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		handleErrors(w, r, h.logger, auth.ErrUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	h.count(metrics.OpDelete)

	respond.Message(w, r, http.StatusOK, "Task deleted successfully")
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		handleErrors(w, r, h.logger, auth.ErrUnauthorized)
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, stats)
}

func (h *TaskHandler) count(op string) {
	if h.metrics != nil {
		h.metrics.TaskMutations.WithLabelValues(op).Inc()
	}
}
