package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"coursehub/internal/course/models"
	"coursehub/internal/platform/middleware"
	"coursehub/internal/transport/http/shared"
	dErrors "coursehub/pkg/domain-errors"
)

// Service defines the course operations the handler exposes.
type Service interface {
	CreateCourse(ctx context.Context, title, description string) (*models.Course, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	ListPublished(ctx context.Context) ([]*models.Course, error)
	PublishCourse(ctx context.Context, id string) (*models.Course, error)
	ArchiveCourse(ctx context.Context, id string) (*models.Course, error)
}

// Handler handles course catalog endpoints.
type Handler struct {
	courses      Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(courses Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{courses: courses, logger: logger, jwtValidator: jwtValidator}
}

type createCourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type courseResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	State        string `json:"state"`
	StudentCount int    `json:"student_count"`
}

func toResponse(c *models.Course) courseResponse {
	return courseResponse{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		State:        string(c.State),
		StudentCount: c.StudentCount,
	}
}

// Register registers the course routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	router.Post("/", h.handleCreate)
	router.Get("/", h.handleList)
	router.Get("/{courseID}", h.handleGet)
	router.Post("/{courseID}/publish", h.handlePublish)
	router.Post("/{courseID}/archive", h.handleArchive)

	r.Mount("/courses", router)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	course, err := h.courses.CreateCourse(ctx, req.Title, req.Description)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toResponse(course))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	course, err := h.courses.GetCourse(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(course))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListPublished(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]courseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, toResponse(c))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	course, err := h.courses.PublishCourse(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(course))
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	course, err := h.courses.ArchiveCourse(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(course))
}
