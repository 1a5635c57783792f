package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tinkoff_bot/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "nested", "bot_settings.json"))
}

func TestStore_DefaultsOnFirstRun(t *testing.T) {
	s := newTempStore(t)

	got := s.Get()
	assert.Equal(t, models.DefaultSettings(), got)

	_, err := os.Stat(s.Path())
	assert.NoError(t, err, "defaults must be persisted")
}

func TestStore_RoundTripAcrossInstances(t *testing.T) {
	s := newTempStore(t)

	_, err := s.Update(func(bs *models.BotSettings) error {
		bs.StopLossPercent = decimal.NewFromInt(5)
		return nil
	})
	require.NoError(t, err)

	// новый процесс: новый стор над тем же файлом
	reopened := NewStore(s.Path())
	got := reopened.Get()

	want := models.DefaultSettings()
	want.StopLossPercent = decimal.NewFromInt(5)
	assert.Equal(t, want, got)
}

func TestStore_RejectsInvalidUpdate(t *testing.T) {
	s := newTempStore(t)

	_, err := s.Update(func(bs *models.BotSettings) error {
		bs.TPPortions = []decimal.Decimal{decimal.RequireFromString("0.5"), decimal.RequireFromString("0.2")}
		return nil
	})
	assert.ErrorIs(t, err, models.ErrInvalidSettings)
	assert.Equal(t, models.DefaultSettings().TPPortions, s.Get().TPPortions)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := newTempStore(t)

	got := s.Get()
	got.TPLevels[0] = decimal.NewFromInt(99)
	got.AutoLiquidation.Weekdays[0] = 6

	again := s.Get()
	assert.Equal(t, "0.5", again.TPLevels[0].String())
	assert.Equal(t, 0, again.AutoLiquidation.Weekdays[0])
}

func TestStore_SeesExternalEdit(t *testing.T) {
	s := newTempStore(t)
	_ = s.Get()

	raw := `{"risk_long_percent": 12.5, "risk_short_percent": 7}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(raw), 0o644))
	// mtime у некоторых ФС грубый: двигаем явно
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(s.Path(), future, future))

	got := s.Get()
	assert.Equal(t, "12.5", got.RiskLongPercent.String())
	assert.Equal(t, "7", got.RiskShortPercent.String())
	// отсутствующие поля берутся из дефолтов
	assert.Equal(t, models.DefaultSettings().TPLevels, got.TPLevels)
}

func TestStore_CorruptFileFallsBackToDefaults(t *testing.T) {
	s := newTempStore(t)
	_, err := s.Update(func(bs *models.BotSettings) error {
		bs.RiskLongPercent = decimal.NewFromInt(44)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))
	future := time.Now().Add(3 * time.Second)
	require.NoError(t, os.Chtimes(s.Path(), future, future))

	assert.Equal(t, models.DefaultSettings(), s.Get())
}
