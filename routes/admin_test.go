package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"plantbnb-server/models"
	"plantbnb-server/storage"
	"plantbnb-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupRouteTestDB points storage.DB at an in-memory sqlite database.
// The named shared-cache DSN keeps every pooled connection on the same DB.
func setupRouteTestDB(t *testing.T, name string) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.IdentityVerification{}, &models.AuditLog{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	storage.DB = db
}

// buildAdminTestApp creates a minimal Iris app with the admin routes and JWT verifier
func buildAdminTestApp() *iris.Application {
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	app := iris.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(utils.AccessToken) })

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/users", AdminListUsers)
		admin.Get("/verifications", AdminListPendingVerifications)
		admin.Post("/users/{id:uint}/verification/approve", AdminApproveVerification)
		admin.Post("/users/{id:uint}/verification/reject", AdminRejectVerification)
		admin.Patch("/users/{id:uint}/role", utils.SuperAdminOnlyMiddleware, AdminChangeUserRole)
	}
	if err := app.Build(); err != nil {
		panic(err)
	}
	return app
}

// signTestToken returns a signed JWT for the given user ID and role
func signTestToken(id uint, role string) string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 0)
	token, _ := signer.Sign(utils.AccessToken{ID: id, Role: role})
	return string(token)
}

func seedRouteUser(t *testing.T, email, role, status string, docPath *string) models.User {
	t.Helper()

	user := models.User{
		FirstName:          "Test",
		LastName:           "User",
		Email:              email,
		Role:               role,
		VerificationStatus: status,
	}
	user.VerificationDocumentPath = docPath
	if err := storage.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func TestAdminUsersRBAC(t *testing.T) {
	setupRouteTestDB(t, "admin_rbac")
	app := buildAdminTestApp()

	// No token
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code == http.StatusOK {
		t.Fatalf("expected non-200 without token, got %d", resp.Code)
	}

	// User role -> 403
	req2 := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req2.Header.Set("Authorization", "Bearer "+signTestToken(1, "user"))
	resp2 := httptest.NewRecorder()
	app.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d", resp2.Code)
	}

	// Admin role -> 200 (empty list OK)
	req3 := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req3.Header.Set("Authorization", "Bearer "+signTestToken(1, "admin"))
	resp3 := httptest.NewRecorder()
	app.ServeHTTP(resp3, req3)
	if resp3.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin role, got %d", resp3.Code)
	}
}

func TestAdminRoleChangeRequiresSuperAdmin(t *testing.T) {
	setupRouteTestDB(t, "admin_role_change")
	app := buildAdminTestApp()

	target := seedRouteUser(t, "target@plantbnb.test", "user", models.VerificationStatusUnverified, nil)
	body, _ := json.Marshal(map[string]string{"role": "admin"})

	// Plain admin -> 403
	req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/admin/users/%d/role", target.ID), bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+signTestToken(1, "admin"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin role, got %d", resp.Code)
	}

	// Super admin -> 200 and role persisted
	req2 := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/admin/users/%d/role", target.ID), bytes.NewReader(body))
	req2.Header.Set("Authorization", "Bearer "+signTestToken(1, "super_admin"))
	req2.Header.Set("Content-Type", "application/json")
	resp2 := httptest.NewRecorder()
	app.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusOK {
		t.Fatalf("expected 200 for super_admin role, got %d: %s", resp2.Code, resp2.Body.String())
	}

	var updated models.User
	if err := storage.DB.First(&updated, target.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if updated.Role != "admin" {
		t.Fatalf("expected role admin, got %q", updated.Role)
	}
}

func TestAdminApproveAndRejectVerification(t *testing.T) {
	setupRouteTestDB(t, "admin_review_flow")
	t.Setenv("UPLOADS_DIR", t.TempDir())
	app := buildAdminTestApp()

	docPath := "verification/doc.png"
	pending := seedRouteUser(t, "pending@plantbnb.test", "user", models.VerificationStatusPending, &docPath)
	noDoc := seedRouteUser(t, "nodoc@plantbnb.test", "user", models.VerificationStatusUnverified, nil)

	// Pending queue lists the submitted user
	listReq := httptest.NewRequest(http.MethodGet, "/api/admin/verifications", nil)
	listReq.Header.Set("Authorization", "Bearer "+signTestToken(99, "admin"))
	listResp := httptest.NewRecorder()
	app.ServeHTTP(listResp, listReq)
	if listResp.Code != http.StatusOK {
		t.Fatalf("expected 200 listing verifications, got %d", listResp.Code)
	}
	var listBody struct {
		Data []models.User `json:"data"`
	}
	if err := json.Unmarshal(listResp.Body.Bytes(), &listBody); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(listBody.Data) != 1 || listBody.Data[0].ID != pending.ID {
		t.Fatalf("expected pending queue [%d], got %+v", pending.ID, listBody.Data)
	}

	// Approve without a document -> 422
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/admin/users/%d/verification/approve", noDoc.ID), nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(99, "admin"))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 approving without document, got %d", resp.Code)
	}

	// Approve the pending user
	req2 := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/admin/users/%d/verification/approve", pending.ID), nil)
	req2.Header.Set("Authorization", "Bearer "+signTestToken(99, "admin"))
	resp2 := httptest.NewRecorder()
	app.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusOK {
		t.Fatalf("expected 200 approving, got %d: %s", resp2.Code, resp2.Body.String())
	}

	var approved models.User
	storage.DB.First(&approved, pending.ID)
	if approved.VerificationStatus != models.VerificationStatusApproved {
		t.Fatalf("expected status approved, got %q", approved.VerificationStatus)
	}
	if approved.IsVerified == nil || !*approved.IsVerified {
		t.Fatalf("expected isVerified true after approval")
	}

	// Reject an unknown user -> 404
	req3 := httptest.NewRequest(http.MethodPost, "/api/admin/users/9999/verification/reject", nil)
	req3.Header.Set("Authorization", "Bearer "+signTestToken(99, "admin"))
	resp3 := httptest.NewRecorder()
	app.ServeHTTP(resp3, req3)
	if resp3.Code != http.StatusNotFound {
		t.Fatalf("expected 404 rejecting unknown user, got %d", resp3.Code)
	}

	// Reject the approved user, clears document and verified flag
	rejectBody, _ := json.Marshal(map[string]string{"notes": "photo too blurry"})
	req4 := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/admin/users/%d/verification/reject", pending.ID), bytes.NewReader(rejectBody))
	req4.Header.Set("Authorization", "Bearer "+signTestToken(99, "admin"))
	req4.Header.Set("Content-Type", "application/json")
	resp4 := httptest.NewRecorder()
	app.ServeHTTP(resp4, req4)
	if resp4.Code != http.StatusOK {
		t.Fatalf("expected 200 rejecting, got %d: %s", resp4.Code, resp4.Body.String())
	}

	var rejected models.User
	storage.DB.First(&rejected, pending.ID)
	if rejected.VerificationStatus != models.VerificationStatusUnverified {
		t.Fatalf("expected status unverified after rejection, got %q", rejected.VerificationStatus)
	}
	if rejected.VerificationDocumentPath != nil {
		t.Fatalf("expected document path cleared after rejection")
	}

	// Review decisions are audited
	var audits int64
	storage.DB.Model(&models.AuditLog{}).Where("resource_type = ?", "user").Count(&audits)
	if audits == 0 {
		t.Fatalf("expected audit log entries for review decisions")
	}
}
