package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/propline/promopost/internal/config"
)

// authCookieNames are the cookies the target site sets for a logged-in
// session; their expiry bounds the stored session's validity.
var authCookieNames = map[string]bool{"c_user": true, "xs": true}

// CookieStore handles storage of target-site session cookies between runs.
type CookieStore struct {
	path   string
	domain string
}

// StoredCookies represents the persisted cookie data
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// NewCookieStore creates a cookie store at the given path for the given site domain.
func NewCookieStore(path, domain string) *CookieStore {
	return &CookieStore{path: path, domain: domain}
}

// DefaultCookieStorePath returns the default path for cookie storage
func DefaultCookieStorePath() (string, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cookies.json"), nil
}

// Save persists cookies to disk
// TODO: Encrypt cookies at rest
func (cs *CookieStore) Save(cookies []*network.Cookie) error {
	dir := filepath.Dir(cs.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	// Find the earliest expiration among auth-related cookies
	var earliestExpiry time.Time
	for _, c := range cookies {
		if authCookieNames[c.Name] && c.Expires > 0 {
			exp := time.Unix(int64(c.Expires), 0)
			if earliestExpiry.IsZero() || exp.Before(earliestExpiry) {
				earliestExpiry = exp
			}
		}
	}

	stored := StoredCookies{
		Cookies:    cookies,
		CapturedAt: time.Now(),
		ExpiresAt:  earliestExpiry,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cs.path, data, 0600)
}

// Load retrieves cookies from disk
func (cs *CookieStore) Load() (*StoredCookies, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// IsValid checks if stored cookies are still usable for skipping login.
func (cs *CookieStore) IsValid() bool {
	stored, err := cs.Load()
	if err != nil {
		return false
	}

	if stored.ExpiresAt.IsZero() || time.Now().After(stored.ExpiresAt) {
		return false
	}

	found := 0
	for _, c := range stored.Cookies {
		if authCookieNames[c.Name] {
			found++
		}
	}
	return found == len(authCookieNames)
}

// Clear removes stored cookies
func (cs *CookieStore) Clear() error {
	return os.Remove(cs.path)
}

// SiteCookies returns only the target-site cookies for injection.
func (cs *CookieStore) SiteCookies() ([]*network.Cookie, error) {
	stored, err := cs.Load()
	if err != nil {
		return nil, err
	}

	var siteCookies []*network.Cookie
	for _, c := range stored.Cookies {
		if c.Domain == cs.domain || c.Domain == "."+cs.domain {
			siteCookies = append(siteCookies, c)
		}
	}

	return siteCookies, nil
}
