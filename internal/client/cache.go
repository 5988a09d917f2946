package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/peterbourgon/diskv/v3"

	"learning-diary/internal/models"
)

const (
	sessionKey     = "session"
	studentNameKey = "student_name"
)

// CachedSession is the signed-in identity kept between runs.
type CachedSession struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Provider string `json:"provider"`
}

// TokenCache keeps the session token and the student's name on disk.
type TokenCache struct {
	d   *diskv.Diskv
	now func() time.Time
}

func NewTokenCache(basePath string) *TokenCache {
	return &TokenCache{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			Transform:    func(s string) []string { return []string{} },
			CacheSizeMax: 64 * 1024,
			FilePerm:     0600,
			PathPerm:     0700,
		}),
		now: time.Now,
	}
}

// Load returns the cached session if one exists and its token has not expired.
func (c *TokenCache) Load() (*CachedSession, bool) {
	if !c.d.Has(sessionKey) {
		return nil, false
	}
	data, err := c.d.Read(sessionKey)
	if err != nil {
		return nil, false
	}
	var s CachedSession
	if err := json.Unmarshal(data, &s); err != nil || s.Token == "" || s.UserID == "" {
		return nil, false
	}
	if c.expired(s.Token) {
		return nil, false
	}
	return &s, true
}

func (c *TokenCache) Save(resp *models.SignInResponse) error {
	data, err := json.Marshal(CachedSession{Token: resp.Token, UserID: resp.UserID, Provider: resp.Provider})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := c.d.Write(sessionKey, data); err != nil {
		return fmt.Errorf("failed to write session cache: %w", err)
	}
	return nil
}

func (c *TokenCache) Clear() error {
	if !c.d.Has(sessionKey) {
		return nil
	}
	return c.d.Erase(sessionKey)
}

func (c *TokenCache) StudentName() string {
	if !c.d.Has(studentNameKey) {
		return ""
	}
	return c.d.ReadString(studentNameKey)
}

func (c *TokenCache) SetStudentName(name string) error {
	return c.d.WriteString(studentNameKey, name)
}

// expired inspects the exp claim without verifying the signature. The server
// still verifies every request; this only avoids reusing a dead token.
func (c *TokenCache) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.Time.After(c.now())
}
