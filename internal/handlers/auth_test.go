package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestRegisterLoginProfile(t *testing.T) {
	_, r := setupTest(t)

	token := registerUser(t, r, "auth_user1")

	w := doJSON(t, r, "GET", "/auth/profile", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("profile status %d", w.Code)
	}
	var profile ProfileResponse
	decodeData(t, w, &profile)
	if profile.Username != "auth_user1" {
		t.Fatalf("unexpected username %q", profile.Username)
	}

	// повторная регистрация того же имени
	body := `{"username":"auth_user1","password":"pass","password_confirm":"pass"}`
	w = doJSON(t, r, "POST", "/auth/register", "", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register status %d", w.Code)
	}

	// неверный пароль
	w = doJSON(t, r, "POST", "/auth/login", "", `{"username":"auth_user1","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status %d", w.Code)
	}
}

func TestRefreshToken(t *testing.T) {
	_, r := setupTest(t)

	body := `{"username":"auth_refresh","password":"pass","password_confirm":"pass"}`
	w := doJSON(t, r, "POST", "/auth/register", "", body)
	if w.Code != http.StatusOK {
		t.Fatalf("register status %d", w.Code)
	}
	var tok TokenResponse
	decodeData(t, w, &tok)

	w = doJSON(t, r, "POST", "/auth/refresh", "", `{"refresh_token":"`+tok.RefreshToken+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status %d", w.Code)
	}
	var fresh TokenResponse
	decodeData(t, w, &fresh)
	if fresh.AccessToken == "" || fresh.AccessToken == tok.AccessToken {
		t.Fatalf("expected new access token")
	}

	// refresh одноразовый
	w = doJSON(t, r, "POST", "/auth/refresh", "", `{"refresh_token":"`+tok.RefreshToken+`"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh status %d", w.Code)
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	_, r := setupTest(t)
	token := registerUser(t, r, "auth_logout")

	w := doJSON(t, r, "POST", "/auth/logout", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("logout status %d", w.Code)
	}
	w = doJSON(t, r, "GET", "/auth/profile", token, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("profile after logout status %d", w.Code)
	}
}

func TestChangePassword(t *testing.T) {
	_, r := setupTest(t)
	token := registerUser(t, r, "auth_pwd")

	body := `{"old_password":"pass","new_password":"newpass","confirm_password":"newpass"}`
	w := doJSON(t, r, "POST", "/auth/password", token, body)
	if w.Code != http.StatusOK {
		t.Fatalf("change password status %d", w.Code)
	}
	w = doJSON(t, r, "POST", "/auth/login", "", `{"username":"auth_pwd","password":"newpass"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login with new password status %d", w.Code)
	}
	w = doJSON(t, r, "POST", "/auth/login", "", `{"username":"auth_pwd","password":"pass"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login with old password status %d", w.Code)
	}
}

func TestEnable2FA(t *testing.T) {
	_, r := setupTest(t)
	token := registerUser(t, r, "auth_2fa")

	w := doJSON(t, r, "POST", "/auth/2fa/enable", token, `{"password":"pass"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("enable 2fa status %d", w.Code)
	}
	var resp Enable2FAResponse
	decodeData(t, w, &resp)
	if resp.Secret == "" {
		t.Fatalf("empty totp secret")
	}

	// логин без кода отклоняется
	w = doJSON(t, r, "POST", "/auth/login", "", `{"username":"auth_2fa","password":"pass"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login without code status %d", w.Code)
	}

	code, err := totp.GenerateCode(resp.Secret, time.Now())
	if err != nil {
		t.Fatalf("totp code: %v", err)
	}
	w = doJSON(t, r, "POST", "/auth/login", "", `{"username":"auth_2fa","password":"pass","code":"`+code+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login with code status %d: %s", w.Code, w.Body.String())
	}
}
