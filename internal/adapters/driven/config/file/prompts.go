package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// builtinPrompts are served when no file overrides them and seed the
// prompt directory on first use.
var builtinPrompts = map[string]string{
	driven.PromptAnswerSystem: driven.DefaultAnswerSystemPrompt,
}

// PromptStore serves prompt templates from <dir>/<name>.txt. A missing or
// blank file falls back to the built-in template.
type PromptStore struct {
	dir string

	mu     sync.Mutex
	seeded bool
	loaded map[string]string
}

// NewPromptStore creates a prompt store rooted at dir, defaulting to
// ~/.sercha-answers/prompts. Nothing touches the disk until Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".sercha-answers", "prompts")
	}
	return &PromptStore{dir: dir, loaded: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template for name, reading its file once until Reload.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, ok := builtinPrompts[name]
	if !ok {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prompt, ok := s.loaded[name]; ok {
		return prompt, nil
	}
	if !s.seeded {
		s.seed()
		s.seeded = true
	}

	prompt := builtin
	data, err := os.ReadFile(s.path(name))
	switch {
	case err != nil && !errors.Is(err, os.ErrNotExist):
		logger.Warn("Failed to read prompt %s: %v", name, err)
	case err == nil && strings.TrimSpace(string(data)) != "":
		prompt = strings.TrimSpace(string(data))
	}
	s.loaded[name] = prompt
	return prompt, nil
}

// Reload drops loaded templates so edits on disk are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.loaded = make(map[string]string)
	s.mu.Unlock()
}

// seed writes the built-in templates that have no file yet. Failures leave
// the built-ins in use.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		logger.Debug("Prompt directory unavailable: %v", err)
		return
	}
	for name, content := range builtinPrompts {
		path := s.path(name)
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
			logger.Debug("Failed to seed prompt %s: %v", name, err)
		}
	}
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}
