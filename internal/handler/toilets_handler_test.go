package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toaletna-api/internal/domain/model"
	"toaletna-api/internal/domain/service"
)

// fakeMapUseCase scripts the usecase surface for handler tests.
type fakeMapUseCase struct {
	regionResult *model.RegionResult
	regionErr    error
	nearby       []model.ToiletWithDistance
	created      *model.Toilet
	createErr    error
	removeErr    error
}

func (f *fakeMapUseCase) GetRegion(ctx context.Context, bounds model.BoundingBox, zoom int) (*model.RegionResult, error) {
	if f.regionErr != nil {
		return nil, f.regionErr
	}
	return f.regionResult, nil
}

func (f *fakeMapUseCase) FindNearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]model.ToiletWithDistance, error) {
	return f.nearby, nil
}

func (f *fakeMapUseCase) AddToilet(ctx context.Context, req *model.CreateToiletRequest) (*model.Toilet, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

func (f *fakeMapUseCase) RemoveToilet(ctx context.Context, id string) error {
	return f.removeErr
}

func (f *fakeMapUseCase) Stats() service.Stats {
	return service.Stats{}
}

func newTestRouter(uc *fakeMapUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewToiletsHandler(uc)
	router := gin.New()
	router.GET("/api/toilets", h.GetRegion)
	router.GET("/api/toilets/nearby", h.FindNearby)
	router.POST("/api/toilets", h.CreateToilet)
	router.DELETE("/api/toilets/:id", h.DeleteToilet)
	router.GET("/api/cache/stats", h.CacheStats)
	return router
}

func doRequest(router *gin.Engine, method, url, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, url, nil)
	} else {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetRegionOK(t *testing.T) {
	toilet := model.Toilet{ID: "a", Name: "WC a"}
	toilet.SetLatLng(model.LatLng{Lat: 42.7, Lng: 23.3})
	uc := &fakeMapUseCase{regionResult: &model.RegionResult{
		Items:  []model.MapItem{model.NewPointItem(toilet)},
		Source: model.SourceCache,
		Zoom:   16,
	}}

	w := doRequest(newTestRouter(uc), http.MethodGet, "/api/toilets?bbox=23.0,42.5,24.0,43.0&zoom=16", "")
	require.Equal(t, http.StatusOK, w.Code)

	var result model.RegionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Items, 1)
	assert.Equal(t, model.ItemPoint, result.Items[0].Kind)
	assert.Equal(t, model.SourceCache, result.Source)
}

func TestGetRegionEmptyIsOK(t *testing.T) {
	uc := &fakeMapUseCase{regionResult: &model.RegionResult{Source: model.SourceFresh, Zoom: 12}}

	w := doRequest(newTestRouter(uc), http.MethodGet, "/api/toilets?bbox=23.0,42.5,24.0,43.0", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
}

func TestGetRegionMissingBBox(t *testing.T) {
	w := doRequest(newTestRouter(&fakeMapUseCase{}), http.MethodGet, "/api/toilets", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing_parameter")
}

func TestGetRegionMalformedBBox(t *testing.T) {
	router := newTestRouter(&fakeMapUseCase{})

	w := doRequest(router, http.MethodGet, "/api/toilets?bbox=1,2,3", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/api/toilets?bbox=a,b,c,d", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// East west of west.
	w = doRequest(router, http.MethodGet, "/api/toilets?bbox=24.0,42.5,23.0,43.0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRegionRateLimited(t *testing.T) {
	uc := &fakeMapUseCase{regionErr: model.ErrRateLimited}
	w := doRequest(newTestRouter(uc), http.MethodGet, "/api/toilets?bbox=23.0,42.5,24.0,43.0", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limited")
}

func TestGetRegionUnavailable(t *testing.T) {
	uc := &fakeMapUseCase{regionErr: model.ErrUnavailable}
	w := doRequest(newTestRouter(uc), http.MethodGet, "/api/toilets?bbox=23.0,42.5,24.0,43.0", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "currently_unavailable")
}

func TestCreateToilet(t *testing.T) {
	created := &model.Toilet{ID: "new-id", Name: "New WC", Provenance: model.ProvenanceUser}
	uc := &fakeMapUseCase{created: created}

	body := `{"name":"New WC","lat":42.7,"lng":23.3,"category":"public"}`
	w := doRequest(newTestRouter(uc), http.MethodPost, "/api/toilets", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "new-id")
}

func TestGetRegionInvalidInputIsBadRequest(t *testing.T) {
	uc := &fakeMapUseCase{regionErr: fmt.Errorf("coordinates lat=95 lng=23.3: %w", model.ErrInvalidInput)}
	w := doRequest(newTestRouter(uc), http.MethodGet, "/api/toilets?bbox=23.0,42.5,24.0,43.0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_parameter")
}

func TestCreateToiletInvalidCoordinates(t *testing.T) {
	uc := &fakeMapUseCase{createErr: fmt.Errorf("coordinates lat=95 lng=23.3: %w", model.ErrInvalidInput)}
	body := `{"name":"Broken","lat":95,"lng":23.3}`
	w := doRequest(newTestRouter(uc), http.MethodPost, "/api/toilets", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_parameter")
}

func TestCreateToiletBadJSON(t *testing.T) {
	w := doRequest(newTestRouter(&fakeMapUseCase{}), http.MethodPost, "/api/toilets", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteToiletNotFound(t *testing.T) {
	uc := &fakeMapUseCase{removeErr: model.ErrNotFound}
	w := doRequest(newTestRouter(uc), http.MethodDelete, "/api/toilets/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteToiletOK(t *testing.T) {
	w := doRequest(newTestRouter(&fakeMapUseCase{}), http.MethodDelete, "/api/toilets/some-id", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCacheStats(t *testing.T) {
	w := doRequest(newTestRouter(&fakeMapUseCase{}), http.MethodGet, "/api/cache/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "in_flight")
}
