package portal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Allocation is the usage grant assigned by an admin.
type Allocation struct {
	Models            []string `json:"models"`
	PromptsPerDay     int      `json:"prompts_per_day"`
	TokensPerResponse int      `json:"tokens_per_response"`
}

// Session is the canonical record of the authenticated actor. It exists only
// after a successful login and is destroyed on logout.
type Session struct {
	Identifier string      `json:"identifier"`
	RoleClass  string      `json:"role_class"`
	IsAdmin    bool        `json:"is_admin"`
	IsNewUser  bool        `json:"is_new_user"`
	IsApproved bool        `json:"is_approved"`
	Token      string      `json:"token,omitempty"`
	Allocation *Allocation `json:"allocation,omitempty"`
}

// SessionStore persists the session across process restarts. The store is the
// session's sole owner: one logical writer, many readers.
type SessionStore interface {
	Save(sess *Session) error
	Clear() error
	Current() (*Session, error)
}

const sessionFileName = "session.json"

type fileStore struct {
	path string
}

// NewFileStore returns a store keeping one serialized session record under a
// fixed name in dir. An empty dir places it under the user config directory.
func NewFileStore(dir string) (SessionStore, error) {
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(configDir, "access-portal")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &fileStore{path: filepath.Join(dir, sessionFileName)}, nil
}

func (s *fileStore) Save(sess *Session) error {
	if sess == nil {
		return errors.New("nil session")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, payload, 0o600)
}

func (s *fileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) Current() (*Session, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		// unreadable state is treated as logged out
		return nil, ErrNoSession
	}
	return &sess, nil
}
