package setting_handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

type stubSettings struct {
	policy    constant.DuplicatePolicy
	persisted bool
}

func (s *stubSettings) EnsureDefaults(context.Context) error { return nil }

func (s *stubSettings) DuplicatePolicy(context.Context) constant.DuplicatePolicy { return s.policy }

func (s *stubSettings) SetDuplicatePolicy(_ context.Context, p constant.DuplicatePolicy) (bool, error) {
	s.policy = p
	return s.persisted, nil
}

func setup(svc *stubSettings) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSettingHandler(svc)
	r := gin.New()
	r.GET("/api/settings/duplicate-policy", h.GetDuplicatePolicy)
	r.PUT("/api/settings/duplicate-policy", h.UpdateDuplicatePolicy)
	return r
}

func TestDuplicatePolicyEndpoints(t *testing.T) {
	svc := &stubSettings{policy: constant.DuplicatePolicyError, persisted: true}
	r := setup(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/settings/duplicate-policy", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"duplicate_upload_policy":"error"`)

	req := httptest.NewRequest(http.MethodPut, "/api/settings/duplicate-policy",
		strings.NewReader(`{"duplicate_upload_policy":"replace"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, constant.DuplicatePolicyReplace, svc.policy)
	assert.Contains(t, w.Body.String(), `"persisted":true`)
}

func TestUpdateDuplicatePolicy_Invalid(t *testing.T) {
	svc := &stubSettings{policy: constant.DuplicatePolicyError}
	r := setup(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/settings/duplicate-policy",
		strings.NewReader(`{"duplicate_upload_policy":"ignore"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, constant.DuplicatePolicyError, svc.policy)
}

func TestUpdateDuplicatePolicy_NotPersisted(t *testing.T) {
	r := setup(&stubSettings{persisted: false})

	req := httptest.NewRequest(http.MethodPut, "/api/settings/duplicate-policy",
		strings.NewReader(`{"duplicate_upload_policy":"replace"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"persisted":false`)
}
