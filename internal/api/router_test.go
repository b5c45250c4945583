package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/bigsauer/rp-exotics-platform/internal/app"
	iauth "github.com/bigsauer/rp-exotics-platform/internal/auth"
	"github.com/bigsauer/rp-exotics-platform/internal/database/testutil"
)

const testVIN = "WP0AB2A99KS123456"

func newTestRouter(t *testing.T, mutate func(*app.Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	cfg := &app.Config{}
	cfg.Auth.JWT.Secret = "router-test-secret"
	cfg.Auth.JWT.Issuer = "rp-exotics-test"
	cfg.Storage.UploadsDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	jwt, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	router, err := NewRouter(db, jwt, cfg)
	require.NoError(t, err)

	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func loginToken(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    email,
		"password": testutil.SeedPassword,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func createTestDeal(t *testing.T, router *gin.Engine, token string) string {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/deals", token, gin.H{
		"vin":       testVIN,
		"year":      2019,
		"make":      "Porsche",
		"model":     "911",
		"deal_type": "wholesale",
		"seller":    gin.H{"name": "Midwest Auto Group", "type": "dealer"},
		"financial": gin.H{"purchase_price": 50000},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	id, _ := data["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestRouterHealthAndNotFound(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "error")
}

func TestLoginAndLockout(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "chris@rpexotics.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "chris@rpexotics.com",
		"password": testutil.SeedPassword,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decodeData(t, w)
	token, _ := login["token"].(string)
	require.NotEmpty(t, token)
	// Clients schedule refresh off the advertised lifetime.
	require.EqualValues(t, (24*time.Hour).Seconds(), login["expires_in"])

	w = doJSON(t, router, http.MethodGet, "/api/auth/check-session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	require.Equal(t, true, data["valid"])

	// Five failures lock the account; even the right password is refused.
	for i := 0; i < 5; i++ {
		w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
			"email":    "brett@rpexotics.com",
			"password": "wrong-password",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "brett@rpexotics.com",
		"password": testutil.SeedPassword,
	})
	require.Equal(t, http.StatusLocked, w.Code)
}

func TestDealFinancialRedaction(t *testing.T) {
	router := newTestRouter(t, nil)

	salesToken := loginToken(t, router, "parker@rpexotics.com")
	dealID := createTestDeal(t, router, salesToken)

	// Sales carries viewFinancials and sees the money block.
	w := doJSON(t, router, http.MethodGet, "/api/deals/"+dealID, salesToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	financial, ok := data["financial"].(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 50000, financial["purchase_price"])

	// Self-service signups land as viewers without viewFinancials.
	w = doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "visitor",
		"email":    "visitor@example.com",
		"password": "view-only-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "visitor@example.com",
		"password": "view-only-pass",
	})
	require.Equal(t, http.StatusOK, w.Code)
	viewerToken, _ := decodeData(t, w)["token"].(string)
	require.NotEmpty(t, viewerToken)

	w = doJSON(t, router, http.MethodGet, "/api/deals/"+dealID, viewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w)
	require.NotContains(t, data, "financial")

	w = doJSON(t, router, http.MethodPost, "/api/deals", viewerToken, gin.H{
		"vin":       testVIN,
		"deal_type": "wholesale",
		"seller":    gin.H{"name": "Private Seller"},
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestUsersRouteRequiresManage(t *testing.T) {
	router := newTestRouter(t, nil)

	salesToken := loginToken(t, router, "parker@rpexotics.com")
	w := doJSON(t, router, http.MethodGet, "/api/users", salesToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	adminToken := loginToken(t, router, "chris@rpexotics.com")
	w = doJSON(t, router, http.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestBackOfficeUploadFlow(t *testing.T) {
	router := newTestRouter(t, nil)

	salesToken := loginToken(t, router, "parker@rpexotics.com")
	dealID := createTestDeal(t, router, salesToken)

	// Sales has no backoffice grant.
	w := doJSON(t, router, http.MethodGet, "/api/backoffice/dashboard", salesToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	financeToken := loginToken(t, router, "lynn@rpexotics.com")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="title.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 test title"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	uploadPath := fmt.Sprintf("/api/backoffice/deals/%s/documents/title", dealID)
	req := httptest.NewRequest(http.MethodPost, uploadPath, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+financeToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "uploaded", decodeData(t, rec)["status"])

	w = doJSON(t, router, http.MethodPost, uploadPath+"/approve", financeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "approved", decodeData(t, w)["status"])

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/backoffice/deals/%s/progress", dealID), financeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	progress := decodeData(t, w)
	require.EqualValues(t, 20, progress["completion_percentage"])
}

func TestCompatibilitySurface(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decodeData(t, w)
	require.Equal(t, "ok", health["database"])

	salesToken := loginToken(t, router, "parker@rpexotics.com")
	dealID := createTestDeal(t, router, salesToken)

	w = doJSON(t, router, http.MethodGet, "/api/users/me", salesToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "parker", decodeData(t, w)["username"])

	w = doJSON(t, router, http.MethodGet, "/api/deals/search?make=Porsche", salesToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), dealID)

	// Stage shorthand infers the vocabulary from the stage name.
	w = doJSON(t, router, http.MethodPut, "/api/deals/"+dealID+"/stage", salesToken, gin.H{
		"stage": "purchased",
		"notes": "funds wired",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "purchased", decodeData(t, w)["current_stage"])

	// Upload + single-verdict approval under the deals surface.
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="title.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 title scan"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/deals/"+dealID+"/documents/title/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+salesToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	w = doJSON(t, router, http.MethodPut, "/api/deals/"+dealID+"/documents/title/approval", salesToken, gin.H{
		"approved": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "approved", decodeData(t, w)["status"])

	w = doJSON(t, router, http.MethodGet, "/api/deals/"+dealID, salesToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "document_approved")

	financeToken := loginToken(t, router, "lynn@rpexotics.com")
	w = doJSON(t, router, http.MethodGet, "/api/backoffice/deals", financeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "completion_percentage")
}

func TestVINDecodeRoute(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"Results":[{"Variable":"Make","Value":"Porsche"},{"Variable":"Model Year","Value":"2019"}]}`)
	}))
	defer upstream.Close()

	router := newTestRouter(t, func(cfg *app.Config) {
		cfg.VIN.BaseURL = upstream.URL
	})
	token := loginToken(t, router, "parker@rpexotics.com")

	w := doJSON(t, router, http.MethodGet, "/api/vin/"+testVIN, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	require.Equal(t, "Porsche", data["make"])
	require.EqualValues(t, 2019, data["year"])

	w = doJSON(t, router, http.MethodGet, "/api/vin/short", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
