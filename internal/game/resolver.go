package game

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Color is a wheel slot category.
type Color string

const (
	ColorSilver   Color = "silver"
	ColorEmerald  Color = "emerald"
	ColorSapphire Color = "sapphire"
	ColorGold     Color = "gold"
)

// WheelPattern is the published 54-slot layout: 26 silver, 17 emerald,
// 10 sapphire, 1 gold. It is part of the verification contract and is never
// mutated at runtime.
var WheelPattern = [54]Color{
	ColorGold, ColorSilver, ColorEmerald, ColorSilver, ColorSapphire, ColorSilver,
	ColorEmerald, ColorSilver, ColorEmerald, ColorSilver, ColorSapphire, ColorSilver,
	ColorEmerald, ColorSilver, ColorEmerald, ColorSilver, ColorSapphire, ColorSilver,
	ColorEmerald, ColorSilver, ColorEmerald, ColorSilver, ColorSapphire, ColorSilver,
	ColorEmerald, ColorSilver, ColorEmerald, ColorSilver, ColorSapphire, ColorSilver,
	ColorEmerald, ColorSilver, ColorEmerald, ColorSilver, ColorSapphire, ColorSilver,
	ColorEmerald, ColorSilver, ColorEmerald, ColorSilver, ColorSapphire, ColorSilver,
	ColorEmerald, ColorSilver, ColorEmerald, ColorSilver, ColorSapphire, ColorSilver,
	ColorEmerald, ColorSilver, ColorEmerald, ColorSilver, ColorSapphire, ColorSapphire,
}

// PatternLength is the wheel slot count used by both the resolver and the
// client spin math.
const PatternLength = len(WheelPattern)

// Fixed crash formula constants. Part of the published math, never derived at
// request time.
const (
	CrashHouseEdge     = 0.01
	CrashMinMultiplier = 1.00
	CrashMaxMultiplier = 1000.00
)

// wheelPayouts is the fixed payout table: stake multiplier per winning color.
var wheelPayouts = map[Color]decimal.Decimal{
	ColorSilver:   decimal.NewFromInt(2),
	ColorEmerald:  decimal.NewFromInt(3),
	ColorSapphire: decimal.NewFromInt(5),
	ColorGold:     decimal.NewFromInt(50),
}

// ResolveWheel maps a derived [0,1) value to a wheel slot index.
func ResolveWheel(value float64) Outcome {
	idx := int(math.Floor(value * float64(PatternLength)))
	if idx >= PatternLength { // value is < 1 but guard the boundary anyway
		idx = PatternLength - 1
	}
	return Outcome{
		Kind:       KindWheel,
		WheelIndex: idx,
		Color:      WheelPattern[idx],
	}
}

// ResolveCrash maps a derived [0,1) value to a crash multiplier:
// clamp(0.99 / (value - 0.01), 1.00, 1000.00), truncated to two decimals.
// Values at or below the house edge are clamped, never re-rolled; re-rolling
// would break the commit-reveal guarantee.
func ResolveCrash(value float64) Outcome {
	mult := CrashMaxMultiplier
	if value > CrashHouseEdge {
		mult = (1.0 - CrashHouseEdge) / (value - CrashHouseEdge)
	}
	if mult < CrashMinMultiplier {
		mult = CrashMinMultiplier
	}
	if mult > CrashMaxMultiplier {
		mult = CrashMaxMultiplier
	}
	mult = math.Floor(mult*100) / 100

	return Outcome{Kind: KindCrash, Multiplier: mult}
}

// Resolve applies the published mapping for the table kind.
func Resolve(kind Kind, value float64) Outcome {
	if kind == KindCrash {
		return ResolveCrash(value)
	}
	return ResolveWheel(value)
}

// ValidSelection reports whether a selection is playable on the table kind.
// Wheel selections are colors; crash selections are cashout targets strictly
// above 1.00x.
func ValidSelection(kind Kind, selection string) bool {
	if kind == KindWheel {
		_, ok := wheelPayouts[Color(selection)]
		return ok
	}
	target, err := strconv.ParseFloat(selection, 64)
	return err == nil && target > CrashMinMultiplier && target <= CrashMaxMultiplier
}

// SettleAmount computes the payout for a bet against a resolved outcome.
// Money math runs in decimal so stake times multiplier never drifts; the
// result is rounded to cents. A zero payout means the bet lost.
func SettleAmount(bet Bet, outcome Outcome) float64 {
	stake := decimal.NewFromFloat(bet.Amount)

	if outcome.Kind == KindWheel {
		if Color(bet.Selection) != outcome.Color {
			return 0
		}
		return stake.Mul(wheelPayouts[outcome.Color]).Round(2).InexactFloat64()
	}

	target, err := strconv.ParseFloat(bet.Selection, 64)
	if err != nil || target > outcome.Multiplier {
		return 0
	}
	return stake.Mul(decimal.NewFromFloat(target)).Round(2).InexactFloat64()
}
