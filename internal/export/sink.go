package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Sink принимает готовые файлы.
type Sink interface {
	Save(name string, data []byte) (string, error)
}

// DirSink пишет файлы в папку. Файл сначала пишется под временным именем
// и затем переименовывается, недописанных файлов не остается.
type DirSink struct {
	Dir string
}

func (s DirSink) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, name)
	tmp, err := os.CreateTemp(s.Dir, "."+name+".*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}

// MemorySink хранит файлы в памяти.
type MemorySink struct {
	mu    sync.Mutex
	Files map[string][]byte
	Order []string
}

func (s *MemorySink) Save(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Files == nil {
		s.Files = make(map[string][]byte)
	}
	if _, ok := s.Files[name]; !ok {
		s.Order = append(s.Order, name)
	}
	s.Files[name] = append([]byte(nil), data...)
	return name, nil
}
