package blobstore

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var ErrInvalidToken = errors.New("invalid or expired download token")

// URLSigner issues short-lived signed download URLs so clients can
// fetch stored files without credentials for the backing store.
type URLSigner struct {
	key     []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

func NewURLSigner(key []byte, ttl time.Duration, baseURL string) *URLSigner {
	return &URLSigner{key: key, ttl: ttl, baseURL: baseURL, now: time.Now}
}

// SignedURL returns a download URL for the given storage path,
// valid for the signer's TTL.
func (s *URLSigner) SignedURL(path string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"path": path,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign download url: %w", err)
	}
	return fmt.Sprintf("%s/files?token=%s", s.baseURL, url.QueryEscape(signed)), nil
}

// Verify checks a download token and returns the storage path it
// grants access to.
func (s *URLSigner) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	path, ok := claims["path"].(string)
	if !ok || path == "" {
		return "", ErrInvalidToken
	}
	return path, nil
}

// DownloadHandler serves GET /files?token=... by resolving the
// token and streaming the blob.
func DownloadHandler(signer *URLSigner, store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		path, err := signer.Verify(c.QueryParam("token"))
		if err != nil {
			return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
		}
		blob, err := store.Get(c.Request().Context(), path)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
			}
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.Blob(http.StatusOK, blob.ContentType, blob.Data)
	}
}
