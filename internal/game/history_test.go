package game

import (
	"fmt"
	"testing"
	"time"
)

func wheelEntry(id int, color Color) HistoryEntry {
	return HistoryEntry{
		RoundID:    fmt.Sprintf("round-%d", id),
		Outcome:    Outcome{Kind: KindWheel, Color: color},
		ResolvedAt: time.Now(),
	}
}

func TestHistoryStore_CapacityBound(t *testing.T) {
	const capacity = 5
	h := NewHistoryStore(capacity)

	// Append capacity + k entries; the store must hold exactly capacity,
	// being the most recent ones in order.
	const total = capacity + 3
	for i := 0; i < total; i++ {
		h.Append(wheelEntry(i, ColorSilver))
	}

	if h.Len() != capacity {
		t.Fatalf("Len() = %d, want %d", h.Len(), capacity)
	}

	entries := h.Last(capacity)
	for i, e := range entries {
		wantID := fmt.Sprintf("round-%d", total-1-i)
		if e.RoundID != wantID {
			t.Errorf("Last()[%d].RoundID = %s, want %s", i, e.RoundID, wantID)
		}
	}
}

func TestHistoryStore_LastPartial(t *testing.T) {
	h := NewHistoryStore(10)
	h.Append(wheelEntry(0, ColorSilver))
	h.Append(wheelEntry(1, ColorGold))

	entries := h.Last(5)
	if len(entries) != 2 {
		t.Fatalf("Last(5) returned %d entries, want 2", len(entries))
	}
	if entries[0].RoundID != "round-1" {
		t.Errorf("most recent entry = %s, want round-1", entries[0].RoundID)
	}
}

func TestHistoryStore_Latest(t *testing.T) {
	h := NewHistoryStore(3)

	if _, ok := h.Latest(); ok {
		t.Error("Latest() on empty store reported an entry")
	}

	h.Append(wheelEntry(0, ColorSilver))
	h.Append(wheelEntry(1, ColorEmerald))

	latest, ok := h.Latest()
	if !ok || latest.RoundID != "round-1" {
		t.Errorf("Latest() = %v, %v, want round-1", latest.RoundID, ok)
	}
}

func TestHistoryStore_StatsOverLast(t *testing.T) {
	h := NewHistoryStore(10)
	h.Append(wheelEntry(0, ColorSilver))
	h.Append(wheelEntry(1, ColorSilver))
	h.Append(wheelEntry(2, ColorEmerald))
	h.Append(wheelEntry(3, ColorGold))

	stats := h.StatsOverLast(10)
	if stats["silver"] != 2 || stats["emerald"] != 1 || stats["gold"] != 1 {
		t.Errorf("StatsOverLast(10) = %v, want silver:2 emerald:1 gold:1", stats)
	}

	// Window smaller than stored entries only counts the most recent.
	stats = h.StatsOverLast(2)
	if stats["emerald"] != 1 || stats["gold"] != 1 || stats["silver"] != 0 {
		t.Errorf("StatsOverLast(2) = %v, want emerald:1 gold:1", stats)
	}
}

func TestHistoryStore_CrashCategories(t *testing.T) {
	h := NewHistoryStore(10)
	for _, m := range []float64{1.00, 1.99, 2.00, 9.99, 10.00, 250.0} {
		h.Append(HistoryEntry{
			RoundID: fmt.Sprintf("crash-%v", m),
			Outcome: Outcome{Kind: KindCrash, Multiplier: m},
		})
	}

	stats := h.StatsOverLast(10)
	if stats["low"] != 2 || stats["mid"] != 2 || stats["high"] != 2 {
		t.Errorf("StatsOverLast(10) = %v, want low:2 mid:2 high:2", stats)
	}
}

func BenchmarkHistoryStore_Append(b *testing.B) {
	h := NewHistoryStore(100)
	entry := wheelEntry(0, ColorSilver)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Append(entry)
	}
}
