package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordsSeededAreHashed(t *testing.T) {
	ta := newTestApp(t, 0)
	var users []struct {
		Username string `db:"username"`
		Hash     string `db:"password_hash"`
	}
	if err := ta.db.Select(&users, `SELECT username, password_hash FROM users`); err != nil {
		t.Fatalf("select hashes: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 seeded users, got %d", len(users))
	}
	known := map[string]string{"admin": "Admin@123", "vendedor": "Vend@1234"}
	for _, u := range users {
		if strings.Contains(u.Hash, known[u.Username]) {
			t.Fatalf("hash for %s contains plaintext password", u.Username)
		}
		if !strings.HasPrefix(u.Hash, "$2") {
			t.Fatalf("unexpected hash format: %s", u.Hash)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(known[u.Username])); err != nil {
			t.Fatalf("seed hash for %s does not validate: %v", u.Username, err)
		}
	}
}

func login(username, password string) url.Values {
	return url.Values{"username": {username}, "password": {password}}
}

func TestLoginSuccessFailAndThrottle(t *testing.T) {
	ta := newTestApp(t, 0)

	resp := ta.post(t, "/login", "", login("admin", "wrongpass!"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad creds, got %d", resp.StatusCode)
	}
	if b := body(t, resp); !strings.Contains(b, "Invalid username or password") {
		t.Fatalf("login error message missing; body=%s", b)
	}

	resp = ta.post(t, "/login", "", login("admin", "Admin@123"))
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect on success, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/dashboard" {
		t.Fatalf("expected redirect to /dashboard, got %q", loc)
	}
	sid := extractCookie(resp, "sid")
	if sid == "" {
		t.Fatal("session cookie not set")
	}
	if got := ta.get(t, "/dashboard", sid); got.StatusCode != http.StatusOK {
		t.Fatalf("dashboard after login: expected 200, got %d", got.StatusCode)
	}

	// 5 attempts per window; two used above
	for i := 0; i < 3; i++ {
		ta.post(t, "/login", "", login("admin", "wrongpass!"))
	}
	resp = ta.post(t, "/login", "", login("admin", "Admin@123"))
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after throttle, got %d", resp.StatusCode)
	}
}

func TestLoginRejectsMalformedInput(t *testing.T) {
	ta := newTestApp(t, 0)
	for _, f := range []url.Values{
		login("", "Admin@123"),
		login("admin' OR 1=1 --", "Admin@123"),
		login("admin", "short"),
	} {
		resp := ta.post(t, "/login", "", f)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %v, got %d", f, resp.StatusCode)
		}
	}
}

func TestLoginWithoutCSRFIsForbidden(t *testing.T) {
	ta := newTestApp(t, 0)
	req := strings.NewReader(login("admin", "Admin@123").Encode())
	r := newFormRequest("/login", req)
	resp, err := ta.app.Test(r)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", resp.StatusCode)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	ta := newTestApp(t, 0)
	sid := ta.session(t, "u-seller")
	if resp := ta.get(t, "/products", sid); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 before logout, got %d", resp.StatusCode)
	}
	resp := ta.post(t, "/logout", sid, nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect on logout, got %d", resp.StatusCode)
	}
	resp = ta.get(t, "/products", sid)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
		t.Fatalf("expected redirect to login after logout, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	ta := newTestApp(t, 0)
	for _, path := range []string{"/", "/dashboard", "/products", "/clients", "/sales", "/reports", "/expenses", "/notifications"} {
		resp := ta.get(t, path, "")
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
			t.Fatalf("%s: expected redirect to /login, got %d %q", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}
}
