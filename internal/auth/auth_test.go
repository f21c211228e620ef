package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linkdash/linkdash/internal/auth"
)

func TestSignCookieValue(t *testing.T) {
	a := auth.New("test-secret")
	ownerID := "owner123"
	signed := a.SignCookieValue(ownerID)

	parts := strings.SplitN(signed, ":", 2)
	assert.Len(t, parts, 2)
	assert.Equal(t, ownerID, parts[0])
	assert.Equal(t, a.SignCookieValue(ownerID), signed)
}

func TestIssueCookie(t *testing.T) {
	a := auth.New("test-secret")
	rec := httptest.NewRecorder()
	ownerID := a.GetOrSetOwnerID(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, ownerID)

	resp := rec.Result()
	defer resp.Body.Close()

	cookies := resp.Cookies()
	assert.NotEmpty(t, cookies)
	assert.Equal(t, "owner_token", cookies[0].Name)
}

func TestGetOrSetOwnerID_Valid(t *testing.T) {
	a := auth.New("test-secret")
	ownerID := "test-owner"
	signed := a.SignCookieValue(ownerID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{
		Name:  "owner_token",
		Value: signed,
	})

	rec := httptest.NewRecorder()
	gotID := a.GetOrSetOwnerID(rec, req)
	assert.Equal(t, ownerID, gotID)
}

func TestGetOrSetOwnerID_Invalid(t *testing.T) {
	a := auth.New("test-secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{
		Name:  "owner_token",
		Value: "invalidformat",
	})

	rec := httptest.NewRecorder()
	ownerID := a.GetOrSetOwnerID(rec, req)
	assert.NotEmpty(t, ownerID)
	assert.NotEqual(t, "invalidformat", ownerID)
}

func TestValidateOwnerID(t *testing.T) {
	a := auth.New("test-secret")
	ownerID := "valid-owner"
	signed := a.SignCookieValue(ownerID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{
		Name:  "owner_token",
		Value: signed,
	})

	id, ok := a.ValidateOwnerID(req)
	assert.True(t, ok)
	assert.Equal(t, ownerID, id)
}

func TestValidateOwnerID_BadSignature(t *testing.T) {
	a := auth.New("test-secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{
		Name:  "owner_token",
		Value: "someowner:bad-signature",
	})

	id, ok := a.ValidateOwnerID(req)
	assert.False(t, ok)
	assert.Empty(t, id)
}
