package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"snapcook-api/internal/core/ai/provider"
	imagesvc "snapcook-api/internal/core/image"
	recipeService "snapcook-api/internal/core/recipe"
	"snapcook-api/internal/infrastructure/config"
	"snapcook-api/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	detectionJSON = `{"ingredients":[{"name":"eggs","amount":"6","confidence":0.9},{"name":"spinach","amount":"1 bag","confidence":0.7}]}`
	recipesJSON   = `{"recipes":[{"title":"Spinach Omelette","description":"Breakfast","steps":["Beat eggs","Add spinach"],"matched_ingredients":["eggs","spinach"]}]}`
)

type fakeCompleter struct {
	classifyOut string
	classifyErr error
	suggestOut  string
	suggestErr  error
}

func (f *fakeCompleter) Classify(context.Context, string, string, string) (string, error) {
	return f.classifyOut, f.classifyErr
}

func (f *fakeCompleter) Suggest(context.Context, string, string) (string, error) {
	return f.suggestOut, f.suggestErr
}

func newTestRouter(fc *fakeCompleter) *gin.Engine {
	gin.SetMode(gin.TestMode)

	images := imagesvc.NewService(config.ImageConfig{})
	analyzer := recipeService.NewAnalyzer(
		recipeService.NewIngredientService(fc, images),
		recipeService.NewSuggestionService(fc, 5),
	)
	h := NewHandler(analyzer, images.MaxSizeBytes())

	r := gin.New()
	r.Use(requestid.New())
	r.POST("/detect-ingredients", h.HandleDetectIngredients)
	r.POST("/suggest-recipes", h.HandleSuggestRecipes)
	r.POST("/analyze-and-suggest", h.HandleAnalyzeAndSuggest)
	return r
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 120, G: uint8(x * 20), B: uint8(y * 20), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path string, data []byte, contentType, hint string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="fridge.png"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if hint != "" {
		require.NoError(t, mw.WriteField("user_hint", hint))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) common.ErrorResponse {
	t.Helper()
	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleDetectIngredients(t *testing.T) {
	r := newTestRouter(&fakeCompleter{classifyOut: detectionJSON})

	w := serve(r, multipartRequest(t, "/detect-ingredients", testPNG(t), "image/png", "fridge door"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp recipeService.DetectionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Ingredients, 2)
	assert.Equal(t, "eggs", resp.Ingredients[0].Name)
	assert.Empty(t, resp.Warning)
	assert.NotContains(t, w.Body.String(), "warning")
}

func TestHandleDetectIngredients_InvalidInput(t *testing.T) {
	r := newTestRouter(&fakeCompleter{classifyOut: detectionJSON})

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"missing file", multipartRequest(t, "/detect-ingredients", nil, "", "hint only")},
		{"not an image", multipartRequest(t, "/detect-ingredients", []byte("hello"), "text/plain", "")},
		{"corrupt image", multipartRequest(t, "/detect-ingredients", []byte("not really a png"), "image/png", "")},
		{"json body", httptest.NewRequest(http.MethodPost, "/detect-ingredients", strings.NewReader(`{"image":"x"}`))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, common.ErrCodeInvalidInput, decodeError(t, w).Kind)
		})
	}
}

func TestHandleDetectIngredients_EmptyResultIsWarning(t *testing.T) {
	r := newTestRouter(&fakeCompleter{classifyOut: "I only see an empty shelf."})

	w := serve(r, multipartRequest(t, "/detect-ingredients", testPNG(t), "image/png", ""))
	require.Equal(t, http.StatusOK, w.Code)

	var resp recipeService.DetectionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Ingredients)
	assert.Empty(t, resp.Ingredients)
	assert.Equal(t, recipeService.WarningNoIngredients, resp.Warning)
}

func TestHandleDetectIngredients_ExternalErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		kind    string
		message string
	}{
		{"auth", provider.ErrAuth, http.StatusInternalServerError, common.ErrCodeExternalServiceAuth, "external service configuration error"},
		{"network", provider.ErrNetwork, http.StatusServiceUnavailable, common.ErrCodeExternalServiceUnavailable, ""},
		{"timeout", provider.ErrTimeout, http.StatusServiceUnavailable, common.ErrCodeExternalServiceUnavailable, ""},
		{"upstream", provider.ErrUpstream, http.StatusBadGateway, common.ErrCodeExternalServiceUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeCompleter{classifyErr: tt.err})

			req := multipartRequest(t, "/detect-ingredients", testPNG(t), "image/png", "")
			req.Header.Set("X-Request-ID", "req-"+tt.name)
			w := serve(r, req)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.Equal(t, "req-"+tt.name, resp.RequestID)
			if tt.message != "" {
				assert.Equal(t, tt.message, resp.Message)
			}
		})
	}
}

func TestHandleSuggestRecipes(t *testing.T) {
	r := newTestRouter(&fakeCompleter{suggestOut: recipesJSON})

	req := httptest.NewRequest(http.MethodPost, "/suggest-recipes", strings.NewReader(`["Eggs","spinach"," "]`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp recipeService.SuggestionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Recipes, 1)
	assert.Equal(t, "Spinach Omelette", resp.Recipes[0].Title)
	assert.Equal(t, []string{"Eggs", "spinach"}, resp.Recipes[0].MatchedIngredients)
}

func TestHandleSuggestRecipes_InvalidInput(t *testing.T) {
	r := newTestRouter(&fakeCompleter{suggestOut: recipesJSON})

	for _, body := range []string{`[]`, `["", "  "]`, `{"ingredients":["egg"]}`, `not json`, ``} {
		req := httptest.NewRequest(http.MethodPost, "/suggest-recipes", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := serve(r, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, common.ErrCodeInvalidInput, decodeError(t, w).Kind, body)
	}
}

func TestHandleSuggestRecipes_EmptyResultIsWarning(t *testing.T) {
	r := newTestRouter(&fakeCompleter{suggestOut: `{"recipes":[]}`})

	req := httptest.NewRequest(http.MethodPost, "/suggest-recipes", strings.NewReader(`["gravel"]`))
	w := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp recipeService.SuggestionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Recipes)
	assert.Equal(t, recipeService.WarningNoRecipes, resp.Warning)
}

func TestHandleAnalyzeAndSuggest(t *testing.T) {
	r := newTestRouter(&fakeCompleter{classifyOut: detectionJSON, suggestOut: recipesJSON})

	w := serve(r, multipartRequest(t, "/analyze-and-suggest", testPNG(t), "image/png", ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp recipeService.AnalysisResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Ingredients, 2)
	assert.Len(t, resp.Recipes, 1)
	assert.Empty(t, resp.Warning)
}

func TestHandleAnalyzeAndSuggest_DegradedMode(t *testing.T) {
	r := newTestRouter(&fakeCompleter{classifyOut: detectionJSON, suggestErr: provider.ErrUpstream})

	w := serve(r, multipartRequest(t, "/analyze-and-suggest", testPNG(t), "image/png", ""))
	require.Equal(t, http.StatusOK, w.Code)

	var resp recipeService.AnalysisResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Ingredients, 2)
	assert.Empty(t, resp.Recipes)
	assert.Equal(t, recipeService.WarningSuggestionFailed, resp.Warning)
}

func TestHandleAnalyzeAndSuggest_DetectionFailureFailsRequest(t *testing.T) {
	r := newTestRouter(&fakeCompleter{classifyErr: provider.ErrNetwork, suggestOut: recipesJSON})

	w := serve(r, multipartRequest(t, "/analyze-and-suggest", testPNG(t), "image/png", ""))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, common.ErrCodeExternalServiceUnavailable, decodeError(t, w).Kind)
}
