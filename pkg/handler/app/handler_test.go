package app_handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/build"
)

type stubService struct {
	build.Service
	apps    []*model.BuildRecord
	created *model.CreateAppRequest
	updated model.AppInfoUpdate
}

func (s *stubService) ListApps(context.Context) (build.Result[[]*model.BuildRecord], error) {
	return build.Result[[]*model.BuildRecord]{Value: s.apps, Source: build.SourcePrimary}, nil
}

func (s *stubService) CreateApp(_ context.Context, req *model.CreateAppRequest) (*build.IngestResult, error) {
	if req.BundleID == "com.exists" {
		return nil, fmt.Errorf("%w: bundle 已存在", constant.ErrConflict)
	}
	s.created = req
	return &build.IngestResult{Record: &model.BuildRecord{
		UploadID:      constant.PlaceholderUploadPrefix + req.BundleID,
		BundleID:      req.BundleID,
		AppTitle:      req.AppTitle,
		BundleVersion: constant.PlaceholderBundleVersion,
	}, Degraded: true}, nil
}

func (s *stubService) UpdateAppInfo(_ context.Context, bundleID string, u model.AppInfoUpdate) (build.Result[[]*model.BuildRecord], error) {
	if bundleID != "com.x.app" {
		return build.Result[[]*model.BuildRecord]{}, constant.ErrNotFound
	}
	s.updated = u
	return build.Result[[]*model.BuildRecord]{Value: []*model.BuildRecord{}, Source: build.SourcePrimary}, nil
}

func setup(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc)
	r := gin.New()
	r.GET("/api/apps", h.ListApps)
	r.POST("/api/apps", h.CreateApp)
	r.PUT("/api/apps/:bundle_id", h.UpdateApp)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListApps(t *testing.T) {
	r := setup(&stubService{apps: []*model.BuildRecord{{UploadID: "u1", BundleID: "com.x.app"}}})
	w := serve(r, http.MethodGet, "/api/apps", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bundle_id":"com.x.app"`)
	assert.Equal(t, "primary", w.Header().Get("X-Data-Source"))
}

func TestCreateApp(t *testing.T) {
	svc := &stubService{}
	r := setup(svc)

	w := serve(r, http.MethodPost, "/api/apps", `{"app_title":"X","bundle_id":"com.new"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "true", w.Header().Get("X-Metadata-Degraded"))
	assert.Equal(t, "com.new", svc.created.BundleID)

	w = serve(r, http.MethodPost, "/api/apps", `{"app_title":"X","bundle_id":"com.exists"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(r, http.MethodPost, "/api/apps", `{"bundle_id":"com.new"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateApp(t *testing.T) {
	svc := &stubService{}
	r := setup(svc)

	w := serve(r, http.MethodPut, "/api/apps/com.x.app", `{"app_title":"New","app_description":"desc"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "New", svc.updated.AppTitle)
	if assert.NotNil(t, svc.updated.AppDescription) {
		assert.Equal(t, "desc", *svc.updated.AppDescription)
	}

	w = serve(r, http.MethodPut, "/api/apps/com.missing", `{"app_title":"New"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
