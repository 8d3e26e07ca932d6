package httpapi

import (
	"crypto/subtle"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// APIKey is one entry of the keys file.
type APIKey struct {
	ID          string   `yaml:"id"`
	Key         string   `yaml:"key"`
	Permissions []string `yaml:"permissions"`
}

type APIKeyStore struct {
	keys []*APIKey
}

// LoadAPIKeys reads a YAML list of keys. Every key needs an id, a unique
// value and at least one known permission.
func LoadAPIKeys(path string) (*APIKeyStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read api keys file: %w", err)
	}

	var entries []APIKey
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse api keys file: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("api keys file is empty")
	}

	seen := make(map[string]struct{}, len(entries))
	store := &APIKeyStore{keys: make([]*APIKey, 0, len(entries))}
	for i := range entries {
		entry := entries[i]
		entry.ID = strings.TrimSpace(entry.ID)
		entry.Key = strings.TrimSpace(entry.Key)
		switch {
		case entry.ID == "":
			return nil, fmt.Errorf("api key at index %d has empty id", i)
		case entry.Key == "":
			return nil, fmt.Errorf("api key %q has empty key", entry.ID)
		case len(entry.Permissions) == 0:
			return nil, fmt.Errorf("api key %q has no permissions", entry.ID)
		}
		for _, p := range entry.Permissions {
			if _, ok := knownPermissions[p]; !ok {
				return nil, fmt.Errorf("api key %q has unknown permission %q", entry.ID, p)
			}
		}
		if _, dup := seen[entry.Key]; dup {
			return nil, fmt.Errorf("duplicate api key value for id %q", entry.ID)
		}
		seen[entry.Key] = struct{}{}
		store.keys = append(store.keys, &entry)
	}
	return store, nil
}

func newAPIKeyStore(keys ...APIKey) *APIKeyStore {
	s := &APIKeyStore{}
	for i := range keys {
		s.keys = append(s.keys, &keys[i])
	}
	return s
}

// Lookup compares key against every entry in constant time.
func (s *APIKeyStore) Lookup(key string) (*APIKey, bool) {
	if s == nil || key == "" {
		return nil, false
	}
	var found *APIKey
	for _, k := range s.keys {
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(key)) == 1 {
			found = k
		}
	}
	return found, found != nil
}

func (s *APIKeyStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}
