package scheduler

import (
	"testing"
	"time"
)

func TestShouldRunIntervalFirstRunAlwaysTrue(t *testing.T) {
	task := &Task{Kind: KindInterval, Interval: time.Hour}
	if !shouldRun(task, time.Now()) {
		t.Fatal("expected first run to always be due")
	}
}

func TestShouldRunIntervalWaitsForElapsed(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	task := &Task{Kind: KindInterval, Interval: 30 * time.Minute, lastRun: now}
	if shouldRun(task, now.Add(10*time.Minute)) {
		t.Fatal("expected task to not be due before interval elapses")
	}
	if !shouldRun(task, now.Add(30*time.Minute)) {
		t.Fatal("expected task to be due once interval elapses")
	}
}

func TestShouldRunDailyMatchesTimeOfDayOncePerDay(t *testing.T) {
	task := &Task{Kind: KindDaily, TimeOfDay: "03:00"}
	at3 := time.Date(2026, 7, 31, 3, 0, 0, 0, time.UTC)
	if !shouldRun(task, at3) {
		t.Fatal("expected daily task due at its time of day")
	}
	task.lastRun = at3
	if shouldRun(task, at3.Add(time.Minute)) {
		t.Fatal("expected daily task to not re-run same day")
	}
	nextDay := at3.AddDate(0, 0, 1)
	if !shouldRun(task, nextDay) {
		t.Fatal("expected daily task due again the next day at its time")
	}
}

func TestShouldRunWeeklyRequiresDayAndTime(t *testing.T) {
	task := &Task{Kind: KindWeekly, DayOfWeek: time.Monday, TimeOfDay: "00:00"}
	monday := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	if monday.Weekday() != time.Monday {
		t.Fatalf("test fixture date is not a Monday: %v", monday.Weekday())
	}
	if !shouldRun(task, monday) {
		t.Fatal("expected weekly task due on its day and time")
	}
	tuesday := monday.AddDate(0, 0, 1)
	if shouldRun(task, tuesday) {
		t.Fatal("expected weekly task to not be due on the wrong day")
	}
}

func TestIsTimeOfDayParsesHHMM(t *testing.T) {
	now := time.Date(2026, 7, 31, 14, 30, 0, 0, time.UTC)
	if !isTimeOfDay("14:30", now) {
		t.Fatal("expected exact match")
	}
	if isTimeOfDay("14:31", now) {
		t.Fatal("expected mismatch")
	}
	if isTimeOfDay("", now) {
		t.Fatal("expected empty time-of-day to never match")
	}
}
