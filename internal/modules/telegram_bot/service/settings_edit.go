package service

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tinkoff_bot/internal/models"

	"github.com/shopspring/decimal"
)

// settingsEdit: изменение настроек из команды "set ...". Валидирует стор.
type settingsEdit func(*models.BotSettings) error

var errPortionsCount = errors.New("количество долей должно совпадать с количеством уровней TP")

const (
	num  = `(\d+(?:\.\d+)?)`
	list = `(\d+(?:\.\d+)?(?:\s*,\s*\d+(?:\.\d+)?)*)`
)

type setRule struct {
	re   *regexp.Regexp
	edit func(m []string) (settingsEdit, error)
}

var setRules = []setRule{
	{re: regexp.MustCompile(`^set risk ` + num + `\s*/\s*` + num + `$`), edit: func(m []string) (settingsEdit, error) {
		long, short := mustDecimal(m[1]), mustDecimal(m[2])
		return func(s *models.BotSettings) error {
			s.RiskLongPercent, s.RiskShortPercent = long, short
			return nil
		}, nil
	}},
	{re: regexp.MustCompile(`^set risk long ` + num + `$`), edit: func(m []string) (settingsEdit, error) {
		v := mustDecimal(m[1])
		return func(s *models.BotSettings) error { s.RiskLongPercent = v; return nil }, nil
	}},
	{re: regexp.MustCompile(`^set risk short ` + num + `$`), edit: func(m []string) (settingsEdit, error) {
		v := mustDecimal(m[1])
		return func(s *models.BotSettings) error { s.RiskShortPercent = v; return nil }, nil
	}},
	{re: regexp.MustCompile(`^set sl ` + num + `$`), edit: func(m []string) (settingsEdit, error) {
		v := mustDecimal(m[1])
		return func(s *models.BotSettings) error { s.StopLossPercent = v; return nil }, nil
	}},
	{re: regexp.MustCompile(`^set tp ` + num + `$`), edit: func(m []string) (settingsEdit, error) {
		v := mustDecimal(m[1])
		return func(s *models.BotSettings) error { s.TakeProfitPercent = v; return nil }, nil
	}},
	{re: regexp.MustCompile(`^set multi (on|off)$`), edit: func(m []string) (settingsEdit, error) {
		on := m[1] == "on"
		return func(s *models.BotSettings) error { s.MultiTPEnabled = on; return nil }, nil
	}},
	{re: regexp.MustCompile(`^set tp levels ` + list + `$`), edit: func(m []string) (settingsEdit, error) {
		levels := parseDecimals(m[1])
		return func(s *models.BotSettings) error {
			s.TPLevels = levels
			if len(s.TPPortions) != len(levels) {
				s.TPPortions = evenPortions(len(levels))
			}
			return nil
		}, nil
	}},
	{re: regexp.MustCompile(`^set tp portions ` + list + `$`), edit: func(m []string) (settingsEdit, error) {
		var portions []decimal.Decimal
		for _, p := range parseDecimals(m[1]) {
			portions = append(portions, p.Shift(-2))
		}
		return func(s *models.BotSettings) error {
			if len(portions) != len(s.TPLevels) {
				return errPortionsCount
			}
			s.TPPortions = portions
			return nil
		}, nil
	}},
	{re: regexp.MustCompile(`^set auto (on|off)$`), edit: func(m []string) (settingsEdit, error) {
		on := m[1] == "on"
		return func(s *models.BotSettings) error { s.AutoLiquidation.Enabled = on; return nil }, nil
	}},
	{re: regexp.MustCompile(`^set auto time (\d{1,2}:\d{2})$`), edit: func(m []string) (settingsEdit, error) {
		t, err := time.Parse("15:04", m[1])
		if err != nil {
			return nil, fmt.Errorf("время в формате ЧЧ:ММ: %s", m[1])
		}
		hm := t.Format("15:04")
		return func(s *models.BotSettings) error { s.AutoLiquidation.Time = hm; return nil }, nil
	}},
	{re: regexp.MustCompile(`^set auto block (\d+)$`), edit: func(m []string) (settingsEdit, error) {
		v := mustInt(m[1])
		return func(s *models.BotSettings) error { s.AutoLiquidation.BlockMinutes = v; return nil }, nil
	}},
	{re: regexp.MustCompile(`^set auto days (\d(?:\s*,\s*\d)*)$`), edit: func(m []string) (settingsEdit, error) {
		var days []int
		seen := map[int]bool{}
		for _, part := range strings.Split(m[1], ",") {
			d := mustInt(strings.TrimSpace(part))
			if !seen[d] {
				seen[d] = true
				days = append(days, d)
			}
		}
		return func(s *models.BotSettings) error { s.AutoLiquidation.Weekdays = days; return nil }, nil
	}},
}

// parseSet возвращает nil, если команда не распознана.
func parseSet(norm string) settingsEdit {
	for _, r := range setRules {
		m := r.re.FindStringSubmatch(norm)
		if m == nil {
			continue
		}
		edit, err := r.edit(m)
		if err != nil {
			return func(*models.BotSettings) error { return err }
		}
		return edit
	}
	return nil
}

// evenPortions: равные доли с остатком на последней: 3 → 0.33, 0.33, 0.34.
func evenPortions(n int) []decimal.Decimal {
	if n == 0 {
		return nil
	}
	share := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	out := make([]decimal.Decimal, n)
	rest := decimal.NewFromInt(1)
	for i := 0; i < n-1; i++ {
		out[i] = share
		rest = rest.Sub(share)
	}
	out[n-1] = rest
	return out
}

func parseDecimals(s string) []decimal.Decimal {
	parts := strings.Split(s, ",")
	out := make([]decimal.Decimal, 0, len(parts))
	for _, p := range parts {
		out = append(out, mustDecimal(strings.TrimSpace(p)))
	}
	return out
}

func mustInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

// mustDecimal: вход уже прошёл регулярку, ошибки разбора не бывает.
func mustDecimal(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	return v
}
