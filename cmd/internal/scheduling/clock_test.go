package scheduling

import (
	"testing"
	"time"
)

func TestToInstant(t *testing.T) {
	clock := NewClock()

	t.Run("canonicalizes wall clock in a named zone", func(t *testing.T) {
		w := WallClock{Date: Date{2026, time.March, 15}, Time: NewTimeOfDay(9, 0)}

		got := clock.ToInstant(w, "America/New_York")

		// New York is on daylight time mid-March: UTC-4.
		want := time.Date(2026, time.March, 15, 13, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
	})

	t.Run("unknown zone falls back to UTC", func(t *testing.T) {
		w := WallClock{Date: Date{2026, time.March, 15}, Time: NewTimeOfDay(9, 0)}

		got := clock.ToInstant(w, "Mars/Olympus_Mons")

		want := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
	})
}

func TestNow(t *testing.T) {
	clock := NewClockAt(time.Date(2026, time.January, 10, 23, 30, 0, 0, time.UTC))

	got := clock.Now("Asia/Tokyo")

	want := WallClock{Date: Date{2026, time.January, 11}, Time: NewTimeOfDay(8, 30)}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestReproject(t *testing.T) {
	clock := NewClock()

	t.Run("preserves the instant across zones", func(t *testing.T) {
		w := WallClock{Date: Date{2026, time.March, 15}, Time: NewTimeOfDay(9, 0)}

		got := clock.Reproject(w, "America/New_York", "Europe/Berlin")

		// 09:00 EDT is 13:00 UTC is 14:00 CET.
		want := WallClock{Date: Date{2026, time.March, 15}, Time: NewTimeOfDay(14, 0)}
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})

	t.Run("date shifts when the instant crosses midnight in the target zone", func(t *testing.T) {
		w := WallClock{Date: Date{2026, time.January, 10}, Time: NewTimeOfDay(22, 0)}

		got := clock.Reproject(w, "UTC", "Asia/Tokyo")

		want := WallClock{Date: Date{2026, time.January, 11}, Time: NewTimeOfDay(7, 0)}
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})
}
