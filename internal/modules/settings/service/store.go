package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tinkoff_bot/internal/models"
	"tinkoff_bot/pkg/logger"

	"github.com/bytedance/sonic"
)

// Store: настройки бота в одном JSON-файле.
// Чтение идёт через кэш, ключ кэша: mtime и размер файла: внешняя правка видна без рестарта.
// Запись: read-modify-write под мьютексом, tmp + rename.
type Store struct {
	path string

	mu      sync.Mutex
	cached  *models.BotSettings
	modTime time.Time
	size    int64
}

func NewStore(path string) *Store {
	if path == "" {
		path = "data/bot_settings.json"
	}
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Get: текущие настройки. Файла нет или он битый: дефолты.
func (s *Store) Get() models.BotSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked().Clone()
}

// Update применяет fn к копии текущих настроек, валидирует и сохраняет.
func (s *Store) Update(fn func(*models.BotSettings) error) (models.BotSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.loadLocked().Clone()
	if err := fn(&next); err != nil {
		return models.BotSettings{}, err
	}
	if err := next.Validate(); err != nil {
		return models.BotSettings{}, err
	}
	if err := s.saveLocked(next); err != nil {
		return models.BotSettings{}, err
	}
	return next.Clone(), nil
}

// Reset: вернуть дефолты.
func (s *Store) Reset() (models.BotSettings, error) {
	return s.Update(func(bs *models.BotSettings) error {
		*bs = models.DefaultSettings()
		return nil
	})
}

func (s *Store) loadLocked() models.BotSettings {
	st, err := os.Stat(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("[SETTINGS] stat %s: %v", s.path, err)
			return models.DefaultSettings()
		}
		// первый запуск: создаём файл с дефолтами
		def := models.DefaultSettings()
		if err := s.saveLocked(def); err != nil {
			logger.Warn("[SETTINGS] create %s: %v", s.path, err)
		}
		return def
	}

	if s.cached != nil && st.ModTime().Equal(s.modTime) && st.Size() == s.size {
		return *s.cached
	}

	loaded := models.DefaultSettings()
	b, err := os.ReadFile(s.path)
	if err != nil {
		logger.Warn("[SETTINGS] read %s: %v, using defaults", s.path, err)
		return models.DefaultSettings()
	}
	if err := sonic.Unmarshal(b, &loaded); err != nil {
		logger.Warn("[SETTINGS] decode %s: %v, using defaults", s.path, err)
		loaded = models.DefaultSettings()
	}

	s.remember(loaded, st)
	return loaded
}

func (s *Store) saveLocked(bs models.BotSettings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(s.path), err)
	}

	b, err := sonic.ConfigStd.MarshalIndent(&bs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	st, err := os.Stat(s.path)
	if err != nil {
		// файл записан, но без stat кэш держать не на чем
		s.cached = nil
		return nil
	}
	s.remember(bs, st)
	return nil
}

func (s *Store) remember(bs models.BotSettings, st os.FileInfo) {
	c := bs.Clone()
	s.cached = &c
	s.modTime = st.ModTime()
	s.size = st.Size()
}
