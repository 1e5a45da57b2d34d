package server

import (
	"net/http"
	"time"
)

const (
	// CookieName holds the chat id of a web client
	CookieName = "botmesero_chat"
	// CookieMaxAge keeps a web chat alive for a day
	CookieMaxAge = 24 * time.Hour
)

func SetChatCookie(w http.ResponseWriter, r *http.Request, chatID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    chatID,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

func GetChatCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
