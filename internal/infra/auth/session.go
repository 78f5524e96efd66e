package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	SessionName = "muyu-session"
	tokenKey    = "token"
)

// CookieStore keeps the session token in a signed cookie so browser clients
// do not have to hold it themselves.
type CookieStore struct {
	store *sessions.CookieStore
}

func NewCookieStore(sessionKey string, secure bool, maxAge time.Duration, logger *zap.Logger) (*CookieStore, error) {
	if sessionKey == "" {
		return nil, errors.New("session key is empty; provide 32+ random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}
	return &CookieStore{store: store}, nil
}

// Token returns the token stored in the request cookie. A cookie that fails
// signature checks yields ErrTokenInvalid so the caller can clear it.
func (c *CookieStore) Token(r *http.Request) (string, error) {
	sess, err := c.store.Get(r, SessionName)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			return "", ErrTokenInvalid
		}
		return "", err
	}
	v, _ := sess.Values[tokenKey].(string)
	return v, nil
}

func (c *CookieStore) Save(w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := c.store.Get(r, SessionName)
	sess.Values[tokenKey] = token
	return sess.Save(r, w)
}

func (c *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := c.store.Get(r, SessionName)
	delete(sess.Values, tokenKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
