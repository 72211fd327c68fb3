package auth

import (
	"sync"

	errs "followscope/pkg/errors"
)

// Session is the credential source consulted on every request. It may be
// replaced at runtime (e.g. after `auth login`) without rebuilding clients.
type Session struct {
	mu      sync.RWMutex
	account *Account
}

// NewSession wraps account, which may be nil
func NewSession(account *Account) *Session {
	s := &Session{}
	s.Set(account)
	return s
}

// Set replaces the current account
func (s *Session) Set(account *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account == nil {
		s.account = nil
		return
	}
	accountCopy := *account
	s.account = &accountCopy
}

// Credentials returns the auth_token and ct0 cookies, or an AuthMissing error
func (s *Session) Credentials() (authToken, ct0 string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil || s.account.AuthToken == "" || s.account.CT0 == "" {
		return "", "", errs.AuthMissing("no auth_token/ct0 session; run `followscope auth login`")
	}
	return s.account.AuthToken, s.account.CT0, nil
}

// UpdateCT0 replaces the csrf cookie after the server rotates it.
// It reports whether the value changed.
func (s *Session) UpdateCT0(ct0 string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil || ct0 == "" || s.account.CT0 == ct0 {
		return false
	}
	s.account.CT0 = ct0
	return true
}

// CurrentUserID returns the numeric id of the logged-in account
func (s *Session) CurrentUserID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil || s.account.UserID == "" {
		return "", errs.AuthMissing("current user id unknown; supply the twid cookie or --user-id")
	}
	return s.account.UserID, nil
}

// UserAgent returns the account's user agent, or "" to use the client default
func (s *Session) UserAgent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return ""
	}
	return s.account.UserAgent
}

// Username returns the stored account name
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return ""
	}
	return s.account.Username
}

// Merge overlays non-empty fields of override onto base and returns a new account
func Merge(base, override *Account) *Account {
	merged := &Account{}
	if base != nil {
		*merged = *base
	}
	if override == nil {
		return merged
	}
	if override.Username != "" {
		merged.Username = override.Username
	}
	if override.UserID != "" {
		merged.UserID = override.UserID
	}
	if override.AuthToken != "" {
		merged.AuthToken = override.AuthToken
	}
	if override.CT0 != "" {
		merged.CT0 = override.CT0
	}
	if override.UserAgent != "" {
		merged.UserAgent = override.UserAgent
	}
	return merged
}
