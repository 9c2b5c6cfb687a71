package routes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"plantbnb-server/models"
	"plantbnb-server/storage"
	"plantbnb-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// buildVerificationTestApp wires the user-facing verification routes
func buildVerificationTestApp() *iris.Application {
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	app := iris.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(utils.AccessToken) })

	user := app.Party("/api/user")
	{
		user.Post("/verification", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, SubmitVerificationDocument)
		user.Get("/verification", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, GetVerificationStatus)
	}
	if err := app.Build(); err != nil {
		panic(err)
	}
	return app
}

func documentRequest(t *testing.T, token string, filename, contentType string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="document"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create multipart part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write multipart content: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/user/verification", &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestSubmitVerificationOverRoutes(t *testing.T) {
	setupRouteTestDB(t, "routes_submit_verification")
	t.Setenv("UPLOADS_DIR", t.TempDir())
	app := buildVerificationTestApp()

	user := seedRouteUser(t, "submitter@plantbnb.test", "user", models.VerificationStatusUnverified, nil)
	token := signTestToken(user.ID, "user")

	req := documentRequest(t, token, "passport.png", "image/png", []byte("fake png bytes"))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 submitting document, got %d: %s", resp.Code, resp.Body.String())
	}

	var reloaded models.User
	storage.DB.First(&reloaded, user.ID)
	if reloaded.VerificationStatus != models.VerificationStatusPending {
		t.Fatalf("expected status pending after submit, got %q", reloaded.VerificationStatus)
	}
	if reloaded.VerificationDocumentPath == nil {
		t.Fatalf("expected a stored document path after submit")
	}

	// Status endpoint reflects the pending state with one history row
	statusReq := httptest.NewRequest(http.MethodGet, "/api/user/verification", nil)
	statusReq.Header.Set("Authorization", "Bearer "+token)
	statusResp := httptest.NewRecorder()
	app.ServeHTTP(statusResp, statusReq)
	if statusResp.Code != http.StatusOK {
		t.Fatalf("expected 200 from status endpoint, got %d", statusResp.Code)
	}

	var status struct {
		Status  string                        `json:"status"`
		History []models.IdentityVerification `json:"history"`
	}
	if err := json.Unmarshal(statusResp.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode status response: %v", err)
	}
	if status.Status != models.VerificationStatusPending {
		t.Fatalf("expected pending status, got %q", status.Status)
	}
	if len(status.History) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(status.History))
	}
}

func TestSubmitVerificationRejectsBadUploads(t *testing.T) {
	setupRouteTestDB(t, "routes_submit_bad_uploads")
	t.Setenv("UPLOADS_DIR", t.TempDir())
	app := buildVerificationTestApp()

	user := seedRouteUser(t, "badupload@plantbnb.test", "user", models.VerificationStatusUnverified, nil)
	token := signTestToken(user.ID, "user")

	// Missing file part -> 400
	req := httptest.NewRequest(http.MethodPost, "/api/user/verification", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a file, got %d", resp.Code)
	}

	// Unsupported content type -> 415
	req2 := documentRequest(t, token, "doc.gif", "image/gif", []byte("gif bytes"))
	resp2 := httptest.NewRecorder()
	app.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 for gif upload, got %d", resp2.Code)
	}

	var reloaded models.User
	storage.DB.First(&reloaded, user.ID)
	if reloaded.VerificationStatus != models.VerificationStatusUnverified {
		t.Fatalf("expected status to stay unverified, got %q", reloaded.VerificationStatus)
	}
}

func TestSubmitVerificationRefusedWhenApproved(t *testing.T) {
	setupRouteTestDB(t, "routes_submit_approved")
	t.Setenv("UPLOADS_DIR", t.TempDir())
	app := buildVerificationTestApp()

	docPath := "verification/doc.png"
	user := seedRouteUser(t, "approved@plantbnb.test", "user", models.VerificationStatusApproved, &docPath)
	token := signTestToken(user.ID, "user")

	req := documentRequest(t, token, "passport.png", "image/png", []byte("fake png bytes"))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 resubmitting when approved, got %d", resp.Code)
	}
}
