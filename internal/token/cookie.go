package token

import "net/http"

// RefreshCookie arma la cookie http-only del refresh, scoped al path de
// sesión. Secure fuera de dev; Max-Age = TTL del refresh.
func (s *Service) RefreshCookie(pair *Pair) *http.Cookie {
	return &http.Cookie{
		Name:     s.CookieName,
		Value:    pair.RefreshToken,
		Path:     s.CookiePath,
		MaxAge:   int(s.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expira la cookie del refresh (sign-out).
func (s *Service) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.CookieName,
		Value:    "",
		Path:     s.CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
