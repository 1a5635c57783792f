package models

import "strings"

type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return Long, true
	case "short", "sell":
		return Short, true
	}
	return "", false
}

func (d Direction) Opposite() Direction {
	if d == Long {
		return Short
	}
	return Long
}

// EntrySide: сторона рыночного ордера, открывающего позицию.
func (d Direction) EntrySide() Side {
	if d == Long {
		return Buy
	}
	return Sell
}

// ExitSide: сторона ордера, закрывающего позицию (и её стопов).
func (d Direction) ExitSide() Side {
	return d.EntrySide().Opposite()
}

// Position: открытая позиция по одному инструменту. Нулевые не существуют.
type Position struct {
	FIGI      string
	Ticker    string
	Lots      int64
	Direction Direction
}

// Signed: лоты со знаком: short отрицательный.
func (p Position) Signed() int64 {
	if p.Direction == Short {
		return -p.Lots
	}
	return p.Lots
}

// PositionFromNet строит позицию из чистого количества (free + blocked).
func PositionFromNet(figi, ticker string, net int64) (Position, bool) {
	switch {
	case net > 0:
		return Position{FIGI: figi, Ticker: ticker, Lots: net, Direction: Long}, true
	case net < 0:
		return Position{FIGI: figi, Ticker: ticker, Lots: -net, Direction: Short}, true
	}
	return Position{}, false
}
