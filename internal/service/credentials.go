package service

import (
	"context"
	"errors"
	"slices"
	"workorder-invoicer/internal/credentials"
)

var ErrNoCredentials = errors.New("no credentials provided")

// CredentialsUpdate reports what UpdateCredentials wrote.
type CredentialsUpdate struct {
	Updated []string `json:"updated"`
	// Unknown holds keys no scraper reads, mapped to the known key they most likely
	// meant (empty when nothing is close).
	Unknown map[string]string `json:"unknown,omitempty"`
}

// UpdateCredentials writes the given keys to the credential store. Unknown keys are
// still written, they may be read by a newer version.
func (s *Service) UpdateCredentials(ctx context.Context, updates map[string]string) (CredentialsUpdate, error) {
	if len(updates) == 0 {
		return CredentialsUpdate{}, ErrNoCredentials
	}

	out := CredentialsUpdate{}
	for key := range updates {
		out.Updated = append(out.Updated, key)
	}
	slices.Sort(out.Updated)
	for _, key := range out.Updated {
		if credentials.IsKnown(key) {
			continue
		}
		if out.Unknown == nil {
			out.Unknown = map[string]string{}
		}
		suggestion, _ := credentials.Suggest(key)
		out.Unknown[key] = suggestion
	}

	err := s.store.Update(ctx, updates)
	if err != nil {
		s.tel.ReportBroken(report_credentials, err)
		return CredentialsUpdate{}, err
	}
	return out, nil
}

// ParseRequest extracts the credential updates a captured request (curl or DevTools
// text) carries for the given token slot, without storing them.
func (s *Service) ParseRequest(text, kind string) (map[string]string, error) {
	tokenKind, err := credentials.ParseTokenKind(kind)
	if err != nil {
		return nil, err
	}
	req, err := credentials.ParseCaptured(text)
	if err != nil {
		return nil, err
	}
	return credentials.VerifoneUpdates(req, tokenKind)
}
