package storage

import (
	"encoding/json"
	"fmt"
)

// Persisted keys. All three are cleared together on logout.
const (
	KeyHost      = "ha_ip"
	KeyToken     = "ha_token"
	KeySelection = "selected_entities"
)

// Credential is the host + bearer token pair saved after a successful login
type Credential struct {
	Host  string
	Token string
}

// SaveCredential persists c
func SaveCredential(s Store, c Credential) error {
	if err := s.Set(KeyHost, c.Host); err != nil {
		return err
	}
	return s.Set(KeyToken, c.Token)
}

// LoadCredential returns the saved credential. ok is false unless both host
// and token are present.
func LoadCredential(s Store) (Credential, bool, error) {
	host, hostOK, err := s.Get(KeyHost)
	if err != nil {
		return Credential{}, false, err
	}
	token, tokenOK, err := s.Get(KeyToken)
	if err != nil {
		return Credential{}, false, err
	}
	if !hostOK || !tokenOK || host == "" || token == "" {
		return Credential{}, false, nil
	}
	return Credential{Host: host, Token: token}, true, nil
}

// SaveSelection persists ids as a JSON array
func SaveSelection(s Store, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode selection: %w", err)
	}
	return s.Set(KeySelection, string(data))
}

// LoadSelection returns the saved selection, empty when none was saved
func LoadSelection(s Store) ([]string, error) {
	raw, ok, err := s.Get(KeySelection)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []string{}, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode selection: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Clear removes the credential and the selection
func Clear(s Store) error {
	return s.Delete(KeyHost, KeyToken, KeySelection)
}
