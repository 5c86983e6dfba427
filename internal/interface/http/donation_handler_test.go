package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annadaan/annadaan-backend/internal/application"
	"github.com/annadaan/annadaan-backend/internal/container"
	"github.com/annadaan/annadaan-backend/internal/infrastructure/memory"
	handlers "github.com/annadaan/annadaan-backend/internal/interface/http"
	"github.com/annadaan/annadaan-backend/internal/router"
	"github.com/annadaan/annadaan-backend/internal/router/modules"
	"github.com/annadaan/annadaan-backend/pkg/helpers"
	"github.com/annadaan/annadaan-backend/pkg/validation"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	jwt := helpers.NewJWTManager("test-access", "test-refresh", time.Hour, 720*time.Hour)
	container.SetJWT(jwt)
	container.SetRedis(nil)

	users := memory.NewUserRepository()
	userSvc := application.NewUserService(users, jwt, nil, nil)
	donationSvc := application.NewDonationService(memory.NewDonationRepository(), users, nil, nil)

	engine := gin.New()
	reg := router.NewRegistry(engine)
	reg.Add(
		modules.NewAuthModule(handlers.NewAuthHandler(userSvc, nil, "localhost", false)),
		modules.NewUserModule(handlers.NewUserHandler(userSvc, nil)),
		modules.NewDonationModule(handlers.NewDonationHandler(donationSvc, nil)),
	)
	reg.RegisterAll()
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, engine *gin.Engine, phone, role string) string {
	t.Helper()
	w := doJSON(t, engine, http.MethodPost, "/api/auth/register", "", gin.H{
		"full_name":    "Test " + role,
		"phone_number": phone,
		"password":     "password123",
		"role":         role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.Token)
	return body.Data.Token
}

func donationBody() gin.H {
	return gin.H{
		"food_items": []gin.H{{"name": "Rice", "quantity": "5 kg"}},
		"serves":     12,
		"pickup_by":  time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"location":   gin.H{"longitude": 77.0, "latitude": 12.9},
	}
}

func TestAuthEndpoints(t *testing.T) {
	engine := newTestServer(t)

	registerUser(t, engine, "+919800000010", "donor")

	// Duplicate phone.
	w := doJSON(t, engine, http.MethodPost, "/api/auth/register", "", gin.H{
		"full_name":    "Dup",
		"phone_number": "+919800000010",
		"password":     "password123",
		"role":         "donor",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Malformed payload: bad phone and short password.
	w = doJSON(t, engine, http.MethodPost, "/api/auth/register", "", gin.H{
		"full_name":    "Bad",
		"phone_number": "not-a-phone",
		"password":     "short",
		"role":         "donor",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/auth/login", "", gin.H{
		"phone_number": "+919800000010",
		"password":     "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "access_token")

	w = doJSON(t, engine, http.MethodPost, "/api/auth/login", "", gin.H{
		"phone_number": "+919800000010",
		"password":     "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDonationEndpointsRequireAuth(t *testing.T) {
	engine := newTestServer(t)

	w := doJSON(t, engine, http.MethodPost, "/api/donations", "", donationBody())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/api/donations/nearby?longitude=77&latitude=12.9", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDonationLifecycleOverHTTP(t *testing.T) {
	engine := newTestServer(t)
	donorToken := registerUser(t, engine, "+919800000020", "donor")
	volToken := registerUser(t, engine, "+919800000021", "volunteer")

	// Volunteers cannot create listings.
	w := doJSON(t, engine, http.MethodPost, "/api/donations", volToken, donationBody())
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/donations", donorToken, donationBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)
	assert.Equal(t, "Available", created.Data.Status)
	id := created.Data.ID

	// Nearby surfaces it with the donor attached, password redacted.
	w = doJSON(t, engine, http.MethodGet, "/api/donations/nearby?longitude=77&latitude=12.9", volToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)
	assert.NotContains(t, w.Body.String(), "password")

	// Donor cannot accept own listing; volunteer can.
	w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/donations/%s/accept", id), donorToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/donations/%s/accept", id), volToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Second accept races out.
	w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/donations/%s/accept", id), volToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Edit after accept is rejected.
	w = doJSON(t, engine, http.MethodPut, "/api/donations/"+id, donorToken, donationBody())
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/donations/%s/complete", id), volToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/api/donations/mypickups", volToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w = doJSON(t, engine, http.MethodGet, "/api/donations/mydonations", donorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Completed")

	// Unknown id maps to 404.
	w = doJSON(t, engine, http.MethodGet, "/api/donations/d-999999", donorToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
