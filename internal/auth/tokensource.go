package auth

import (
	"fmt"

	"golang.org/x/oauth2"
)

// managerTokenSource exposes the manager's snapshot as an oauth2.TokenSource
// so API clients built with option.WithTokenSource sign requests with the
// currently bound credential. It deliberately performs no refresh check of
// its own: the scheduler keeps the credential fresh, and an old access token
// read by an in-flight request stays valid until its own expiry.
type managerTokenSource struct {
	manager *Manager
}

// TokenSource returns an oauth2.TokenSource view over the manager.
func (m *Manager) TokenSource() oauth2.TokenSource {
	return &managerTokenSource{manager: m}
}

// Token implements oauth2.TokenSource.
func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	token := s.manager.Token()
	if token == nil {
		return nil, fmt.Errorf("no credential bound yet; authorization has not completed")
	}
	return token, nil
}
