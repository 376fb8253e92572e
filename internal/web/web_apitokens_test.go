package web

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volontulo/go-volontulo/internal/database"
)

func TestTokenFromHeader(t *testing.T) {
	tests := []struct {
		header string
		key    string
		ok     bool
	}{
		{"Token abc", "abc", true},
		{"token abc", "abc", true},
		{"Token", "", true},
		{"Token a b", "", true},
		{"Bearer abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		key, ok := tokenFromHeader(tt.header)
		assert.Equal(t, tt.key, key, tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
	}
}

func TestAPILoginFailure(t *testing.T) {
	f := newFixture(t)

	w := f.do(request{method: http.MethodPost, path: "/rest-auth/login/",
		form: url.Values{"username": {"admin_user@example.com"}, "password": {"asdf"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]interface{}{
		"non_field_errors": []interface{}{"Podane dane uwierzytelniające nie pozwalają na zalogowanie."},
	}, decode(t, w))

	w = f.do(request{method: http.MethodPost, path: "/rest-auth/login/",
		form: url.Values{"username": {"admin_user@example.com"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"To pole jest wymagane."}, decode(t, w)["password"])

	w = f.do(request{method: http.MethodPost, path: "/rest-auth/login/",
		json: `{"username": "admin_user@example.com", "password": ""}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"To pole nie może być puste."}, decode(t, w)["password"])
}

func TestAPILoginRequiresUsername(t *testing.T) {
	f := newFixture(t)

	w := f.do(request{method: http.MethodPost, path: "/rest-auth/login/",
		form: url.Values{"password": {"x"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]interface{}{
		"username": []interface{}{"To pole jest wymagane."},
	}, decode(t, w))

	w = f.do(request{method: http.MethodPost, path: "/rest-auth/login/",
		json: `{"username": "", "email": "", "password": "x"}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"To pole nie może być puste."}, decode(t, w)["username"])
}

func TestAPILoginSuccess(t *testing.T) {
	f := newFixture(t)

	w := f.do(request{method: http.MethodPost, path: "/rest-auth/login/",
		form: url.Values{"username": {"admin_user@example.com"}, "password": {"admin_password"}}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["key"])

	// e-mail works as well, JSON bodies too
	w = f.do(request{method: http.MethodPost, path: "/rest-auth/login",
		json: `{"email": "organization2@example.com", "password": "organization2"}`})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["key"])
}

func TestAPILoginLockout(t *testing.T) {
	f := newFixture(t)
	wrong := url.Values{"username": {"volunteer1@example.com"}, "password": {"wrong"}}

	for i := 0; i < database.MaxLoginAttempts; i++ {
		w := f.do(request{method: http.MethodPost, path: "/rest-auth/login/", form: wrong})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []interface{}{"Podane dane uwierzytelniające nie pozwalają na zalogowanie."},
			decode(t, w)["non_field_errors"])
	}

	// the right password is refused while locked out
	w := f.do(request{method: http.MethodPost, path: "/rest-auth/login/",
		form: url.Values{"username": {"volunteer1@example.com"}, "password": {"volunteer1"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"Zbyt wiele nieudanych prób logowania. Spróbuj ponownie później."},
		decode(t, w)["non_field_errors"])
}

func TestAPILogout(t *testing.T) {
	f := newFixture(t)
	token := f.token("admin_user@example.com", "admin_password")

	w := f.do(request{method: http.MethodPost, path: "/rest-auth/logout/", token: token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"success": "Successfully logged out."}, decode(t, w))

	// the token is gone
	w = f.do(request{method: http.MethodGet, path: "/rest-auth/user/", token: token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Niepoprawny token.", decode(t, w)["detail"])
}

func TestInvalidTokenRejectedEverywhere(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/offers/", "/api/organizations/", "/rest-auth/user/"} {
		w := f.do(request{method: http.MethodGet, path: path, token: "does-not-exist"})
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, APIAuthScheme, w.Header().Get("WWW-Authenticate"), path)
		assert.Equal(t, "Niepoprawny token.", decode(t, w)["detail"], path)
	}

	w := f.do(request{method: http.MethodGet, path: "/api/offers/", headers: map[string]string{APIAuthHeader: "Token"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// other schemes are ignored
	w = f.do(request{method: http.MethodGet, path: "/api/offers/", headers: map[string]string{APIAuthHeader: "Basic Zm9vOmJhcg=="}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIUser(t *testing.T) {
	f := newFixture(t)

	w := f.get("/rest-auth/user/")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Nie podano danych uwierzytelniających.", decode(t, w)["detail"])

	token := f.token("organization2@example.com", "organization2")
	w = f.do(request{method: http.MethodGet, path: "/rest-auth/user/", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{
		"pk":         float64(f.organization2.UserID),
		"username":   "organization2@example.com",
		"email":      "organization2@example.com",
		"first_name": "",
		"last_name":  "",
	}, decode(t, w))

	w = f.do(request{method: http.MethodPatch, path: "/rest-auth/user/", token: token,
		json: `{"first_name": "Jan", "username": "ignored"}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, "Jan", out["first_name"])
	assert.Equal(t, "organization2@example.com", out["username"])

	w = f.do(request{method: http.MethodPut, path: "/rest-auth/user/", token: token,
		form: url.Values{"last_name": {"0123456789012345678901234567890"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"Upewnij się, że pole ma nie więcej niż 30 znaków."}, decode(t, w)["last_name"])

	user, err := f.db.GetUserByID(f.organization2.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Jan", user.FirstName)
	assert.Equal(t, "", user.LastName)
}

func TestSessionCookieAuthenticatesAPI(t *testing.T) {
	f := newFixture(t)
	cookie := f.session("organization2@example.com", "organization2")

	w := f.do(request{method: http.MethodGet, path: "/rest-auth/user/", cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "organization2@example.com", decode(t, w)["username"])

	w = f.do(request{method: http.MethodPost, path: "/rest-auth/logout/", cookie: cookie})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(request{method: http.MethodGet, path: "/rest-auth/user/", cookie: cookie})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
