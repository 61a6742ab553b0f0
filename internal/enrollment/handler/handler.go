package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"coursehub/internal/enrollment/models"
	"coursehub/internal/platform/middleware"
	"coursehub/internal/transport/http/shared"
	dErrors "coursehub/pkg/domain-errors"
)

// Service defines the enrollment write operations the handler exposes.
type Service interface {
	CreateEnrollment(ctx context.Context, userID string, req models.CreateEnrollmentRequest) (*models.Enrollment, error)
	DeleteEnrollment(ctx context.Context, userID, enrollmentID string) (*models.Enrollment, error)
}

// QueryService defines the enrollment read operations the handler exposes.
type QueryService interface {
	GetEnrollments(ctx context.Context, userID string, page models.Page) models.EnrollmentPage
	GetEnrollmentStatus(ctx context.Context, userID, courseID string) (models.EnrollmentStatus, error)
}

// Handler handles enrollment endpoints. All routes require authentication;
// the user ID resolved by the middleware is the trusted enrollment
// principal.
type Handler struct {
	enrollments  Service
	queries      QueryService
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

// New creates a new enrollment Handler.
func New(enrollments Service, queries QueryService, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		enrollments:  enrollments,
		queries:      queries,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register registers the enrollment routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	router.Post("/", h.handleCreate)
	router.Delete("/{enrollmentID}", h.handleDelete)
	router.Get("/", h.handleList)
	router.Get("/status/{courseID}", h.handleStatus)

	r.Mount("/enrollments", router)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		h.contextError(ctx, w)
		return
	}

	var req models.CreateEnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid enrollment request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	enrollment, err := h.enrollments.CreateEnrollment(ctx, userID, req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create enrollment", err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, enrollment)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		h.contextError(ctx, w)
		return
	}

	enrollment, err := h.enrollments.DeleteEnrollment(ctx, userID, chi.URLParam(r, "enrollmentID"))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to delete enrollment", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, enrollment)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		h.contextError(ctx, w)
		return
	}

	page := models.Page{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}

	shared.WriteJSON(w, http.StatusOK, h.queries.GetEnrollments(ctx, userID, page))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		h.contextError(ctx, w)
		return
	}

	status, err := h.queries.GetEnrollmentStatus(ctx, userID, chi.URLParam(r, "courseID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeUnavailable) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	shared.WriteError(w, err)
}

// contextError fires only if RequireAuth is misconfigured on this router.
func (h *Handler) contextError(ctx context.Context, w http.ResponseWriter) {
	h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
		"request_id", middleware.GetRequestID(ctx),
	)
	shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
