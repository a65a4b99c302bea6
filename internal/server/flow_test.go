package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signupBody() map[string]any {
	return map[string]any{
		"name":             "Kiran Kumar",
		"bloodGroup":       "B+",
		"gender":           "Male",
		"age":              34,
		"weight":           72.5,
		"state":            "Telangana",
		"constituency":     "Warangal",
		"lastDonationDate": time.Now().AddDate(0, -6, 0).Format("2006-01-02"),
	}
}

func TestSignInToFeedFlow(t *testing.T) {
	_, app := newTestServer(t, testConfig())

	token, uid := signIn(t, app, "9876543210")
	require.NotEmpty(t, uid)

	status, snap := doJSON(t, app, http.MethodGet, "/api/session", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "needs-profile", snap["state"])

	status, profile := doJSON(t, app, http.MethodPost, "/api/users/me/profile", token, signupBody())
	require.Equal(t, http.StatusCreated, status, profile)
	assert.Equal(t, "+919876543210", profile["phone"])
	assert.Equal(t, "user", profile["role"])

	status, snap = doJSON(t, app, http.MethodGet, "/api/session", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", snap["state"])
	assert.Equal(t, "standard", snap["view"])

	status, _ = doJSON(t, app, http.MethodPost, "/api/users/me/profile", token, signupBody())
	assert.Equal(t, http.StatusConflict, status)

	status, feedResp := doJSON(t, app, http.MethodGet, "/api/posts", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, feedResp["demo"])

	status, rejected := doJSON(t, app, http.MethodPost, "/api/posts", token, map[string]any{
		"type": "receiver", "bloodGroup": "B+", "phone": "9876543210", "state": "Telangana", "district": "Warangal",
	})
	require.Equal(t, http.StatusBadRequest, status)
	fields := rejected["fields"].(map[string]any)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "urgency")

	status, post := doJSON(t, app, http.MethodPost, "/api/posts", token, map[string]any{
		"type": "donor", "bloodGroup": "b+", "phone": "9876543210", "state": "Telangana", "district": "Warangal",
	})
	require.Equal(t, http.StatusCreated, status, post)
	assert.Equal(t, "B+", post["bloodGroup"])
	assert.Nil(t, post["urgency"])

	status, feedResp = doJSON(t, app, http.MethodGet, "/api/posts?tab=Donors&bloodGroup=b%2B", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, feedResp["demo"])
	items := feedResp["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, post["id"], items[0].(map[string]any)["id"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/posts/"+post["id"].(string), token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, mine := doJSON(t, app, http.MethodGet, "/api/users/me/posts", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, mine["demo"])
	assert.Len(t, mine["items"], 1)

	status, update := doJSON(t, app, http.MethodPatch, "/api/users/me/fields/weight", token, map[string]any{"value": 70})
	require.Equal(t, http.StatusOK, status, update)
	assert.Equal(t, "confirmed", update["status"])
	assert.Equal(t, 70.0, update["value"])
	assert.Equal(t, 72.5, update["previous"])

	status, _ = doJSON(t, app, http.MethodPatch, "/api/users/me/fields/age", token, map[string]any{"value": 80})
	assert.Equal(t, http.StatusBadRequest, status)

	status, toggled := doJSON(t, app, http.MethodPost, "/api/users/me/availability", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, toggled["value"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/admin/staff", token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	_, app := newTestServer(t, testConfig())

	status, sent := doJSON(t, app, http.MethodPost, "/api/auth/otp/send", "", map[string]string{"phone": "9123456789"})
	require.Equal(t, http.StatusAccepted, status)

	wrong := "000000"
	if sent["code"] == wrong {
		wrong = "111111"
	}
	status, body := doJSON(t, app, http.MethodPost, "/api/auth/otp/verify", "", map[string]string{
		"verificationId": sent["verificationId"].(string),
		"code":           wrong,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/otp/verify", "", map[string]string{
		"verificationId": sent["verificationId"].(string),
		"code":           "12ab",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["fields"], "code")
}

func TestSendOTPRejectsBadPhone(t *testing.T) {
	_, app := newTestServer(t, testConfig())

	status, body := doJSON(t, app, http.MethodPost, "/api/auth/otp/send", "", map[string]string{"phone": "12"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["fields"], "phone")
}

func TestRefreshRevokesOldToken(t *testing.T) {
	_, app := newTestServer(t, testConfig())
	token, _ := signIn(t, app, "9000000001")

	status, refreshed := doJSON(t, app, http.MethodPost, "/api/auth/refresh", token, nil)
	require.Equal(t, http.StatusOK, status)
	next := refreshed["token"].(string)
	require.NotEqual(t, token, next)

	status, _ = doJSON(t, app, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, me := doJSON(t, app, http.MethodGet, "/api/auth/me", next, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "+919000000001", me["phone"])
}

func TestWebSocketTicketIsSingleUse(t *testing.T) {
	_, app := newTestServer(t, testConfig())
	token, _ := signIn(t, app, "9000000002")

	status, body := doJSON(t, app, http.MethodPost, "/api/ws/ticket", token, nil)
	require.Equal(t, http.StatusOK, status)
	ticket := body["ticket"].(string)

	status, snap := doJSON(t, app, http.MethodGet, "/api/session?ticket="+ticket, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "needs-profile", snap["state"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/ws?ticket="+ticket, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSuperadminManagesRoles(t *testing.T) {
	cfg := testConfig()
	cfg.DevSuperadminPhone = "+919000000010"
	_, app := newTestServer(t, cfg)

	rootToken, rootUID := signIn(t, app, "9000000010")
	status, profile := doJSON(t, app, http.MethodPost, "/api/users/me/profile", rootToken, signupBody())
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "superadmin", profile["role"])

	userToken, userUID := signIn(t, app, "9000000011")
	status, _ = doJSON(t, app, http.MethodPost, "/api/users/me/profile", userToken, signupBody())
	require.Equal(t, http.StatusCreated, status)

	status, _ = doJSON(t, app, http.MethodPut, "/api/admin/users/"+userUID+"/role", userToken, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, status)

	status, promoted := doJSON(t, app, http.MethodPut, "/api/admin/users/"+userUID+"/role", rootToken, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, status, promoted)
	assert.Equal(t, "admin", promoted["role"])

	status, _ = doJSON(t, app, http.MethodPut, "/api/admin/users/"+rootUID+"/role", rootToken, map[string]string{"role": "user"})
	assert.Equal(t, http.StatusForbidden, status)

	status, snap := doJSON(t, app, http.MethodGet, "/api/session", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin", snap["view"])

	status, flags := doJSON(t, app, http.MethodGet, "/api/admin/feature-flags", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"demo_posts": "on"}, flags["raw"])

	status, _ = doJSON(t, app, http.MethodPut, "/api/admin/users/"+userUID+"/role", userToken, map[string]string{"role": "user"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestHealthAndLocations(t *testing.T) {
	_, app := newTestServer(t, testConfig())

	status, live := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", live["status"])

	status, ready := doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", ready["status"])

	status, locs := doJSON(t, app, http.MethodGet, "/api/locations", "", nil)
	require.Equal(t, http.StatusOK, status)
	states := locs["states"].([]any)
	assert.NotEmpty(t, states)
	assert.Equal(t, "Telangana", states[0].(map[string]any)["name"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSwaggerDocServed(t *testing.T) {
	_, app := newTestServer(t, testConfig())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/swagger/doc.json", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "BloodConnect API", doc["info"].(map[string]any)["title"])
}
