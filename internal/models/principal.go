package models

// AnonymousSubject is the subject assigned when authentication is disabled in development.
const AnonymousSubject = "anonymous"

// Principal is the caller identity established by the identity provider.
type Principal struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// IsAnonymous returns true if no identity provider vouched for the caller.
func (p *Principal) IsAnonymous() bool {
	return p == nil || p.Subject == "" || p.Subject == AnonymousSubject
}
