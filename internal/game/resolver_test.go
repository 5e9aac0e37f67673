package game

import (
	"testing"
)

func TestWheelPattern_Composition(t *testing.T) {
	counts := make(map[Color]int)
	for _, c := range WheelPattern {
		counts[c]++
	}

	want := map[Color]int{
		ColorSilver:   26,
		ColorEmerald:  17,
		ColorSapphire: 10,
		ColorGold:     1,
	}
	for color, n := range want {
		if counts[color] != n {
			t.Errorf("pattern has %d %s slots, want %d", counts[color], color, n)
		}
	}
	if PatternLength != 54 {
		t.Errorf("PatternLength = %d, want 54", PatternLength)
	}
}

func TestResolveWheel(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		wantIndex int
	}{
		{name: "zero lands on first slot", value: 0.0, wantIndex: 0},
		{name: "derived reference value", value: float64(3441618323) / 4294967296.0, wantIndex: 43},
		{name: "low derived value", value: float64(337752987) / 4294967296.0, wantIndex: 4},
		{name: "just under one", value: 0.9999999, wantIndex: 53},
		{name: "slot boundary", value: 1.0 / 54.0, wantIndex: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveWheel(tt.value)
			if got.WheelIndex != tt.wantIndex {
				t.Errorf("ResolveWheel(%v).WheelIndex = %d, want %d", tt.value, got.WheelIndex, tt.wantIndex)
			}
			if got.Color != WheelPattern[tt.wantIndex] {
				t.Errorf("ResolveWheel(%v).Color = %s, want %s", tt.value, got.Color, WheelPattern[tt.wantIndex])
			}
			if got.Kind != KindWheel {
				t.Errorf("ResolveWheel(%v).Kind = %s, want %s", tt.value, got.Kind, KindWheel)
			}
		})
	}
}

func TestResolveWheel_Deterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		v := float64(i) / 100.0
		a := ResolveWheel(v)
		b := ResolveWheel(v)
		if a != b {
			t.Fatalf("ResolveWheel(%v) not deterministic: %+v vs %+v", v, a, b)
		}
	}
}

func TestResolveCrash(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{name: "derived reference value", value: float64(337752987) / 4294967296.0, want: 14.42},
		{name: "high value near one", value: float64(3441618323) / 4294967296.0, want: 1.25},
		{name: "value at house edge clamps to cap", value: 0.01, want: CrashMaxMultiplier},
		{name: "value below house edge clamps to cap", value: 0.001, want: CrashMaxMultiplier},
		{name: "value near one floors at min", value: 0.999, want: 1.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCrash(tt.value)
			if got.Multiplier != tt.want {
				t.Errorf("ResolveCrash(%v).Multiplier = %v, want %v", tt.value, got.Multiplier, tt.want)
			}
		})
	}
}

func TestResolveCrash_Bounds(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v := float64(i) / 1000.0
		got := ResolveCrash(v)
		if got.Multiplier < CrashMinMultiplier || got.Multiplier > CrashMaxMultiplier {
			t.Fatalf("ResolveCrash(%v) = %v, outside [%v, %v]", v, got.Multiplier, CrashMinMultiplier, CrashMaxMultiplier)
		}
	}
}

func TestValidSelection(t *testing.T) {
	tests := []struct {
		kind      Kind
		selection string
		want      bool
	}{
		{KindWheel, "silver", true},
		{KindWheel, "gold", true},
		{KindWheel, "purple", false},
		{KindWheel, "2.00", false},
		{KindCrash, "2.00", true},
		{KindCrash, "1.01", true},
		{KindCrash, "1.00", false},
		{KindCrash, "0.50", false},
		{KindCrash, "silver", false},
		{KindCrash, "1000001", false},
	}

	for _, tt := range tests {
		if got := ValidSelection(tt.kind, tt.selection); got != tt.want {
			t.Errorf("ValidSelection(%s, %q) = %v, want %v", tt.kind, tt.selection, got, tt.want)
		}
	}
}

func TestSettleAmount_Wheel(t *testing.T) {
	outcome := Outcome{Kind: KindWheel, WheelIndex: 4, Color: ColorSapphire}

	win := Bet{Amount: 10, Selection: "sapphire"}
	if got := SettleAmount(win, outcome); got != 50 {
		t.Errorf("SettleAmount(winning sapphire) = %v, want 50", got)
	}

	lose := Bet{Amount: 10, Selection: "silver"}
	if got := SettleAmount(lose, outcome); got != 0 {
		t.Errorf("SettleAmount(losing color) = %v, want 0", got)
	}
}

func TestSettleAmount_Crash(t *testing.T) {
	outcome := Outcome{Kind: KindCrash, Multiplier: 2.50}

	win := Bet{Amount: 10, Selection: "2.00"}
	if got := SettleAmount(win, outcome); got != 20 {
		t.Errorf("SettleAmount(target below crash) = %v, want 20", got)
	}

	exact := Bet{Amount: 10, Selection: "2.50"}
	if got := SettleAmount(exact, outcome); got != 25 {
		t.Errorf("SettleAmount(target at crash) = %v, want 25", got)
	}

	lose := Bet{Amount: 10, Selection: "3.00"}
	if got := SettleAmount(lose, outcome); got != 0 {
		t.Errorf("SettleAmount(target above crash) = %v, want 0", got)
	}
}

func TestSettleAmount_DecimalPrecision(t *testing.T) {
	// 0.1 * 3 must come out as exactly 0.30, not 0.30000000000000004.
	outcome := Outcome{Kind: KindWheel, Color: ColorEmerald}
	bet := Bet{Amount: 0.1, Selection: "emerald"}
	if got := SettleAmount(bet, outcome); got != 0.3 {
		t.Errorf("SettleAmount(0.1 on emerald) = %v, want 0.3", got)
	}
}
