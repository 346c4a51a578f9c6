package builtin

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/tagtracker/internal/testutil"
)

func TestCalendar_GridAndSummaries(t *testing.T) {
	root, store := testutil.TestVault(t, nil)
	x := newIndex(map[string][]string{
		"2024-05-01": {"a.md"},
		"2024-05-20": {"a.md", "notes/b c.md"},
		"urgent":     {"a.md"},
	})

	got, err := renderCalendar(newContext(x, store, &CalendarOptions{}))
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := "**May 2024**\n\n" +
		"Mon | Tue | Wed | Thu | Fri | Sat | Sun\n" +
		"--- | --- | --- | --- | --- | --- | ---\n" +
		"  . |  . |  [1](calendar/2024-05-01.md) |  2 |  3 |  4 |  5\n" +
		"  6 |  7 |  8 |  9 | 10 | 11 | 12\n" +
		" 13 | 14 | 15 | 16 | 17 | 18 | 19\n" +
		" [20](calendar/2024-05-20.md) | 21 | 22 | 23 | 24 | 25 | 26\n" +
		" 27 | 28 | 29 | 30 | 31 |  . |  .\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("calendar mismatch (-want +got):\n%s", diff)
	}

	summary := testutil.ReadFile(t, root, "calendar/2024-05-20.md")
	wantSummary := "*2024-05-20*\n\n[a](a.md)\n[b c](notes/b%20c.md)\n"
	if diff := cmp.Diff(wantSummary, summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if s := testutil.ReadFile(t, root, "calendar/2024-05-01.md"); s != "*2024-05-01*\n\n[a](a.md)\n" {
		t.Errorf("summary 05-01 = %q", s)
	}
}

func TestCalendar_EmbedAndDirectory(t *testing.T) {
	root, store := testutil.TestVault(t, nil)
	x := newIndex(map[string][]string{"2024-05-02": {"a.md", "b.md"}})
	embed := true

	got, err := renderCalendar(newContext(x, store, &CalendarOptions{Directory: "daily notes", Embed: &embed}))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := "  [2](daily%20notes/2024-05-02.md)"; !strings.Contains(got, want) {
		t.Errorf("calendar missing %q:\n%s", want, got)
	}
	summary := testutil.ReadFile(t, root, "daily notes/2024-05-02.md")
	if want := "*2024-05-02*\n\n![a](a.md)\n![b](b.md)\n"; summary != want {
		t.Errorf("summary = %q, want %q", summary, want)
	}
}

func TestCalendar_Idempotent(t *testing.T) {
	root, store := testutil.TestVault(t, nil)
	x := newIndex(map[string][]string{"2024-05-20": {"a.md"}})
	ctx := newContext(x, store, &CalendarOptions{Months: 2})

	first, err := renderCalendar(ctx)
	if err != nil {
		t.Fatal(err)
	}
	firstSummary := testutil.ReadFile(t, root, "calendar/2024-05-20.md")

	second, err := renderCalendar(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("second render differs:\n%s\n---\n%s", first, second)
	}
	if s := testutil.ReadFile(t, root, "calendar/2024-05-20.md"); s != firstSummary {
		t.Errorf("summary changed: %q → %q", firstSummary, s)
	}
}

func TestCalendar_NoDatesWritesNothing(t *testing.T) {
	_, store := testutil.TestVault(t, nil)
	x := newIndex(map[string][]string{"urgent": {"a.md"}})

	if _, err := renderCalendar(newContext(x, store, nil)); err != nil {
		t.Fatal(err)
	}
	if store.IsFile("calendar/2024-05-15.md") {
		t.Error("summary written for an untagged day")
	}
}

func TestRecentMonths(t *testing.T) {
	format := func(ts []time.Time) []string {
		out := make([]string, len(ts))
		for i, m := range ts {
			out[i] = m.Format("2006-01")
		}
		return out
	}

	if diff := cmp.Diff([]string{"2024-05", "2024-04", "2024-03"}, format(recentMonths(fixedNow, 3))); diff != "" {
		t.Errorf("three months (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2024-05"}, format(recentMonths(fixedNow, 0))); diff != "" {
		t.Errorf("zero months (-want +got):\n%s", diff)
	}
	// 28 days back from the 31st stays in the same month.
	endOfMonth := time.Date(2024, time.October, 31, 0, 0, 0, 0, time.UTC)
	if diff := cmp.Diff([]string{"2024-10"}, format(recentMonths(endOfMonth, 2))); diff != "" {
		t.Errorf("repeated month (-want +got):\n%s", diff)
	}
}

func TestWeeks_MondayFirst(t *testing.T) {
	ws := weeks(time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC))
	if got := ws[0][0].Format(dateLayout); got != "2024-08-26" {
		t.Errorf("first cell = %s, want 2024-08-26", got)
	}
	last := ws[len(ws)-1]
	if got := last[6].Format(dateLayout); got != "2024-10-06" {
		t.Errorf("last cell = %s, want 2024-10-06", got)
	}
	for _, w := range ws {
		if w[0].Weekday() != time.Monday {
			t.Errorf("week starts on %s", w[0].Weekday())
		}
	}
}

func TestCalendarOptions_Validate(t *testing.T) {
	if err := (&CalendarOptions{Months: 3, Directory: "cal"}).Validate(); err != nil {
		t.Errorf("valid options rejected: %v", err)
	}
	if err := (&CalendarOptions{Months: -1}).Validate(); err == nil {
		t.Error("negative months accepted")
	}
	if err := (&CalendarOptions{Directory: "../outside"}).Validate(); err == nil {
		t.Error("escaping directory accepted")
	}
}
