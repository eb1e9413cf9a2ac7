package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestkey/server/internal/auth"
	"nestkey/server/internal/database"
	"nestkey/server/internal/models"
	"nestkey/server/internal/notify"
	"nestkey/server/internal/payment"
	"nestkey/server/internal/realtime"
	"nestkey/server/internal/workflow"
)

const testSecret = "test-secret"

type stubGateway struct {
	verifyOK bool
}

func (g *stubGateway) Initialize(email string, amountMinor int64, reference string) (*payment.InitResult, error) {
	return &payment.InitResult{
		AuthorizationURL: "https://checkout.example/" + reference,
		Reference:        reference,
	}, nil
}

func (g *stubGateway) Verify(reference string) (bool, error) {
	return g.verifyOK, nil
}

type testServer struct {
	router *gin.Engine
	db     *database.Database
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	hub := realtime.NewHub(16, logger)
	t.Cleanup(func() { _ = hub.Close() })

	notifier := notify.NewNotifier(db, hub, logger)
	engine, err := workflow.NewEngine(db, &stubGateway{verifyOK: true}, notifier, "admin-1", logger)
	require.NoError(t, err)

	router := gin.New()
	SetupRoutes(router, NewHandler(engine, db, hub, testSecret, logger))
	return &testServer{router: router, db: db}
}

func (s *testServer) tokenFor(t *testing.T, id string, role models.Role) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, &models.User{
		ID: id, Email: id + "@example.com", Role: role,
	})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
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
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seedProperty(t *testing.T) *models.Property {
	t.Helper()
	property := &models.Property{
		Title:         "Loft downtown",
		Price:         100000,
		InspectionFee: 5000,
		OwnerID:       "seller-1",
	}
	require.NoError(t, s.db.CreateProperty(property))
	return property
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/inspections", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/inspections", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInspectionEndpoints(t *testing.T) {
	s := newTestServer(t)
	property := s.seedProperty(t)
	buyerToken := s.tokenFor(t, "buyer-1", models.RoleUser)
	otherToken := s.tokenFor(t, "buyer-2", models.RoleUser)

	rec := s.do(t, http.MethodPost, "/api/inspections", buyerToken,
		gin.H{"property_id": property.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode(t, rec)
	inspectionID := created["inspection_id"].(string)
	code := created["code"].(string)
	assert.Regexp(t, `^\d{6}$`, code)

	// Unknown property.
	rec = s.do(t, http.MethodPost, "/api/inspections", buyerToken,
		gin.H{"property_id": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Wrong caller.
	rec = s.do(t, http.MethodPost, "/api/inspections/"+inspectionID+"/verify", otherToken,
		gin.H{"code": code})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Wrong code.
	rec = s.do(t, http.MethodPost, "/api/inspections/"+inspectionID+"/verify", buyerToken,
		gin.H{"code": "000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Correct code.
	rec = s.do(t, http.MethodPost, "/api/inspections/"+inspectionID+"/verify", buyerToken,
		gin.H{"code": code})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Re-verify conflicts.
	rec = s.do(t, http.MethodPost, "/api/inspections/"+inspectionID+"/verify", buyerToken,
		gin.H{"code": code})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Pay.
	rec = s.do(t, http.MethodPost, "/api/inspections/"+inspectionID+"/pay", buyerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	init := decode(t, rec)
	reference := init["reference"].(string)
	assert.NotEmpty(t, init["authorization_url"])

	// Confirm, twice.
	for i := 0; i < 2; i++ {
		rec = s.do(t, http.MethodPost, "/api/inspections/payments/"+reference+"/confirm", buyerToken,
			gin.H{"inspection_id": inspectionID})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		escrow := body["escrow"].(map[string]interface{})
		assert.Equal(t, "approved", escrow["status"])
	}
}

func TestPurchaseRequiresInspection(t *testing.T) {
	s := newTestServer(t)
	property := s.seedProperty(t)
	buyerToken := s.tokenFor(t, "buyer-1", models.RoleUser)

	rec := s.do(t, http.MethodPost, "/api/purchases", buyerToken,
		gin.H{"property_id": property.ID})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestStatsRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	userToken := s.tokenFor(t, "buyer-1", models.RoleUser)
	adminToken := s.tokenFor(t, "admin-1", models.RoleAdmin)

	rec := s.do(t, http.MethodGet, "/api/stats", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/stats", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotificationEndpoints(t *testing.T) {
	s := newTestServer(t)
	property := s.seedProperty(t)
	buyerToken := s.tokenFor(t, "buyer-1", models.RoleUser)

	rec := s.do(t, http.MethodPost, "/api/inspections", buyerToken,
		gin.H{"property_id": property.ID})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/notifications", buyerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notifications []models.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notifications))
	require.Len(t, notifications, 1)
	assert.Equal(t, "Inspection Requested", notifications[0].Title)
	assert.False(t, notifications[0].Read)

	rec = s.do(t, http.MethodPost, "/api/notifications/"+notifications[0].ID+"/read", buyerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Re-reading an already read notification is a miss.
	rec = s.do(t, http.MethodPost, "/api/notifications/"+notifications[0].ID+"/read", buyerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterUser(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/users", "",
		gin.H{"name": "Ada", "email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["token"])

	user := body["user"].(map[string]interface{})
	assert.Equal(t, "user", user["role"])
}
