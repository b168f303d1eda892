package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chambersapp/chambers/pkg/auth"
)

func TestWriteAPIError_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteForbidden(w, "you do not have permission to perform this action")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "you do not have permission to perform this action", resp.Message)
}

func TestWriteQuotaExceeded_Payload(t *testing.T) {
	w := httptest.NewRecorder()
	WriteQuotaExceeded(w, "case limit reached for your plan", 50, 50)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp QuotaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.True(t, resp.LimitReached)
	assert.True(t, resp.UpgradeRequired)
	assert.Equal(t, int64(50), resp.CurrentCount)
	assert.Equal(t, int64(50), resp.MaxAllowed)
}

func TestRedirectToSignIn_CarriesOriginalPath(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/app/cases/view/42?tab=notes", nil)
	RedirectToSignIn(w, r, "/signin", auth.ReasonUnauthenticated)

	assert.Equal(t, http.StatusSeeOther, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/signin", loc.Path)
	assert.Equal(t, "/app/cases/view/42?tab=notes", loc.Query().Get("next"))
	assert.Equal(t, "unauthenticated", loc.Query().Get("reason"))
}

func TestRedirectUnauthorized_EncodesReason(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/app/settings", nil)
	RedirectUnauthorized(w, r, "/unauthorized", auth.ReasonOwnershipRequired, "owner account required")

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/unauthorized", loc.Path)
	assert.Equal(t, "ownership_required", loc.Query().Get("reason"))
	assert.Equal(t, "owner account required", loc.Query().Get("detail"))
}
