package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CookieStore is the browser-local key/value store for one request. Values set
// during the request are visible to later reads in the same request.
type CookieStore struct {
	c      *gin.Context
	maxAge int
	secure bool
	values map[string]string
}

func NewCookieStore(c *gin.Context, maxAge int, secure bool) *CookieStore {
	return &CookieStore{c: c, maxAge: maxAge, secure: secure, values: map[string]string{}}
}

func (s *CookieStore) Get(key string) (string, bool) {
	if v, ok := s.values[key]; ok {
		return v, true
	}
	v, err := s.c.Cookie(key)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (s *CookieStore) Set(key, value string) {
	s.values[key] = value
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(key, value, s.maxAge, "/", "", s.secure, true)
}
