package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	coursemodels "coursehub/internal/course/models"
	coursestore "coursehub/internal/course/store"
	"coursehub/internal/enrollment/models"
	enrollmentservice "coursehub/internal/enrollment/service"
	enrollmentstore "coursehub/internal/enrollment/store"
	"coursehub/internal/platform/middleware"
	"coursehub/pkg/testutil"
)

const testSigningKey = "test-signing-key"

type EnrollmentHandlerSuite struct {
	suite.Suite
	courses *coursestore.InMemory
	router  chi.Router
}

func TestEnrollmentHandlerSuite(t *testing.T) {
	suite.Run(t, new(EnrollmentHandlerSuite))
}

func (s *EnrollmentHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	enrollments := enrollmentstore.NewInMemory()
	s.courses = coursestore.NewInMemory()

	svc := enrollmentservice.New(enrollments, s.courses, enrollmentservice.NewInMemoryTx(),
		enrollmentservice.WithLogger(logger),
	)
	query := enrollmentservice.NewQuery(enrollments, s.courses, logger)

	s.router = chi.NewRouter()
	New(svc, query, logger, middleware.NewHMACValidator(testSigningKey)).Register(s.router)
}

func (s *EnrollmentHandlerSuite) token(userID string) string {
	claims := jwt.MapClaims{
		"sub": userID,
		"sid": "session-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	s.Require().NoError(err)
	return signed
}

func (s *EnrollmentHandlerSuite) publishedCourse(id string) {
	course, err := coursemodels.NewCourse(id, "Course "+id, "", time.Now().UTC())
	s.Require().NoError(err)
	course.ApplyPublish(time.Now().UTC())
	s.Require().NoError(s.courses.Create(context.Background(), course))
}

func (s *EnrollmentHandlerSuite) authed(req *http.Request, userID string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+s.token(userID))
	return req
}

func (s *EnrollmentHandlerSuite) errorCode(body []byte) string {
	var envelope map[string]string
	s.Require().NoError(json.Unmarshal(body, &envelope))
	return envelope["error"]
}

func (s *EnrollmentHandlerSuite) TestAuthentication() {
	s.Run("rejects a request without a token", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/enrollments", models.CreateEnrollmentRequest{CourseID: "c1"})
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusUnauthorized, rr.Code)
	})

	s.Run("rejects a token signed with the wrong key", func() {
		claims := jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-key"))
		s.Require().NoError(err)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/enrollments", models.CreateEnrollmentRequest{CourseID: "c1"})
		req.Header.Set("Authorization", "Bearer "+forged)
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusUnauthorized, rr.Code)
	})
}

func (s *EnrollmentHandlerSuite) TestCreate() {
	s.Run("enrolls the authenticated user", func() {
		s.publishedCourse("course-1")

		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/enrollments", models.CreateEnrollmentRequest{CourseID: "course-1"}), "user-1")
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusCreated, rr.Code)

		var enrollment models.Enrollment
		testutil.DecodeJSON(s.T(), rr, &enrollment)
		s.Equal("user-1", enrollment.UserID)
		s.Equal("course-1", enrollment.CourseID)
		s.NotEmpty(enrollment.ID)
	})

	s.Run("rejects a duplicate with 409", func() {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/enrollments", models.CreateEnrollmentRequest{CourseID: "course-1"}), "user-1")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusConflict, rr.Code)
		s.Equal("conflict", s.errorCode(rr.Body.Bytes()))
	})

	s.Run("rejects an unknown course with 404", func() {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/enrollments", models.CreateEnrollmentRequest{CourseID: "missing"}), "user-1")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusNotFound, rr.Code)
		s.Equal("not_found", s.errorCode(rr.Body.Bytes()))
	})

	s.Run("rejects an unpublished course with 422", func() {
		draft, err := coursemodels.NewCourse("draft-1", "Draft", "", time.Now().UTC())
		s.Require().NoError(err)
		s.Require().NoError(s.courses.Create(context.Background(), draft))

		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/enrollments", models.CreateEnrollmentRequest{CourseID: "draft-1"}), "user-1")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusUnprocessableEntity, rr.Code)
		s.Equal("invalid_state", s.errorCode(rr.Body.Bytes()))
	})

	s.Run("rejects a malformed body with 400", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/enrollments")
		s.authed(req, "user-1")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("rejects a blank course id with 400", func() {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/enrollments", models.CreateEnrollmentRequest{CourseID: "  "}), "user-1")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusBadRequest, rr.Code)
		s.Equal("invalid_input", s.errorCode(rr.Body.Bytes()))
	})
}

func (s *EnrollmentHandlerSuite) TestDelete() {
	s.publishedCourse("course-1")

	req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/enrollments", models.CreateEnrollmentRequest{CourseID: "course-1"}), "owner")
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code)

	var enrollment models.Enrollment
	testutil.DecodeJSON(s.T(), rr, &enrollment)

	s.Run("another user's delete is forbidden", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodDelete, "/enrollments/"+enrollment.ID), "intruder")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusForbidden, rr.Code)
		s.Equal("forbidden", s.errorCode(rr.Body.Bytes()))
	})

	s.Run("the owner's delete returns the removed row", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodDelete, "/enrollments/"+enrollment.ID), "owner")
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusOK, rr.Code)

		var deleted models.Enrollment
		testutil.DecodeJSON(s.T(), rr, &deleted)
		s.Equal(enrollment.ID, deleted.ID)
	})

	s.Run("a second delete is 404", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodDelete, "/enrollments/"+enrollment.ID), "owner")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusNotFound, rr.Code)
	})
}

func (s *EnrollmentHandlerSuite) TestList() {
	s.publishedCourse("course-1")
	s.publishedCourse("course-2")
	for _, courseID := range []string{"course-1", "course-2"} {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/enrollments", models.CreateEnrollmentRequest{CourseID: courseID}), "user-1")
		s.Require().Equal(http.StatusCreated, testutil.DoRequest(s.router, req).Code)
	}

	s.Run("lists with pagination metadata", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/enrollments?page=1&limit=10"), "user-1")
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusOK, rr.Code)

		var page models.EnrollmentPage
		testutil.DecodeJSON(s.T(), rr, &page)
		s.Len(page.Items, 2)
		s.Equal(2, page.Pagination.Total)
		s.Equal(1, page.Pagination.TotalPages)
		s.Empty(page.Error)
		s.NotEmpty(page.Items[0].Course.Title)
	})

	s.Run("missing query parameters fall back to defaults", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/enrollments"), "user-1")
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusOK, rr.Code)

		var page models.EnrollmentPage
		testutil.DecodeJSON(s.T(), rr, &page)
		s.Equal(1, page.Pagination.Page)
		s.Equal(1, page.Pagination.Limit)
	})

	s.Run("another user sees an empty page", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/enrollments"), "user-2")
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusOK, rr.Code)

		var page models.EnrollmentPage
		testutil.DecodeJSON(s.T(), rr, &page)
		s.Empty(page.Items)
		s.Equal(0, page.Pagination.Total)
	})
}

func (s *EnrollmentHandlerSuite) TestStatus() {
	s.publishedCourse("course-1")
	req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/enrollments", models.CreateEnrollmentRequest{CourseID: "course-1"}), "user-1")
	s.Require().Equal(http.StatusCreated, testutil.DoRequest(s.router, req).Code)

	s.Run("reports enrolled", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/enrollments/status/course-1"), "user-1")
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusOK, rr.Code)

		var status models.EnrollmentStatus
		testutil.DecodeJSON(s.T(), rr, &status)
		s.True(status.IsEnrolled)
		s.NotNil(status.EnrolledAt)
	})

	s.Run("reports not enrolled for another user", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/enrollments/status/course-1"), "user-2")
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusOK, rr.Code)

		var status models.EnrollmentStatus
		testutil.DecodeJSON(s.T(), rr, &status)
		s.False(status.IsEnrolled)
		s.Nil(status.EnrolledAt)
	})
}
