package builtin

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tagtracker/internal/models"
	"github.com/starford/tagtracker/internal/view"
)

const (
	dateLayout = "2006-01-02"
	// monthStep is how far back each additional calendar month reaches.
	monthStep = 28
	maxMonths = 36
)

var weekdayHeader = "Mon | Tue | Wed | Thu | Fri | Sat | Sun\n" +
	strings.Repeat("--- | ", 6) + "---\n"

// CalendarOptions configures the calendar view.
type CalendarOptions struct {
	// Months is the number of recent months to render (0 means one).
	Months int `yaml:"months" json:"months"`
	// Directory overrides settings.calendarDirectory for summary files.
	Directory string `yaml:"directory" json:"directory"`
	// Embed overrides settings.embedPagesInDailyView.
	Embed *bool `yaml:"embed" json:"embed"`
}

// Validate validates the options.
func (o *CalendarOptions) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.Months, validation.Min(0), validation.Max(maxMonths)),
		validation.Field(&o.Directory, validation.By(relativeDir)),
	)
}

func relativeDir(value interface{}) error {
	dir, _ := value.(string)
	if dir == "" {
		return nil
	}
	clean := path.Clean(strings.ReplaceAll(dir, `\`, "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("must be relative to the search root")
	}
	return nil
}

func calendarView() view.View {
	return view.View{
		Name:       CalendarName,
		Aliases:    []string{"cal"},
		Render:     renderCalendar,
		NewOptions: func() view.Options { return &CalendarOptions{} },
	}
}

func renderCalendar(c *view.Context) (string, error) {
	opts, _ := c.Options.(*CalendarOptions)
	if opts == nil {
		opts = &CalendarOptions{}
	}
	dir := opts.Directory
	if dir == "" {
		dir = c.Settings.CalendarDirectory
	}
	if dir == "" {
		dir = view.DefaultCalendarDirectory
	}
	dir = path.Clean(strings.ReplaceAll(dir, `\`, "/"))
	embed := c.Settings.EmbedPagesInDailyView
	if opts.Embed != nil {
		embed = *opts.Embed
	}

	cal := &calendar{ctx: c, dir: dir, embed: embed, written: make(map[string]bool)}
	var b strings.Builder
	for i, month := range recentMonths(c.Now, opts.Months) {
		if i > 0 {
			b.WriteString("\n")
		}
		cal.month(&b, month)
	}
	return b.String(), nil
}

// recentMonths returns the first day of each of the n most recent months,
// newest first. Each step reaches 28 days further back; a month reached twice
// is rendered once.
func recentMonths(now time.Time, n int) []time.Time {
	if n < 1 {
		n = 1
	}
	var out []time.Time
	seen := make(map[time.Time]bool, n)
	for i := range n {
		d := now.AddDate(0, 0, -monthStep*i)
		first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		if seen[first] {
			continue
		}
		seen[first] = true
		out = append(out, first)
	}
	return out
}

// weeks returns the Monday-first weeks covering the month starting at first.
func weeks(first time.Time) [][7]time.Time {
	offset := (int(first.Weekday()) + 6) % 7
	day := first.AddDate(0, 0, -offset)
	last := first.AddDate(0, 1, -1)

	var out [][7]time.Time
	for !day.After(last) {
		var w [7]time.Time
		for i := range w {
			w[i] = day
			day = day.AddDate(0, 0, 1)
		}
		out = append(out, w)
	}
	return out
}

type calendar struct {
	ctx     *view.Context
	dir     string
	embed   bool
	written map[string]bool
}

func (cal *calendar) month(b *strings.Builder, first time.Time) {
	fmt.Fprintf(b, "**%s**\n\n", first.Format("January 2006"))
	b.WriteString(weekdayHeader)
	for _, week := range weeks(first) {
		cells := make([]string, len(week))
		for i, day := range week {
			cells[i] = cal.cell(day, first.Month())
		}
		b.WriteString(strings.Join(cells, " |"))
		b.WriteString("\n")
	}
}

func (cal *calendar) cell(day time.Time, month time.Month) string {
	key := day.Format(dateLayout)
	if cal.ctx.Index.Count(key) > 0 {
		link := models.NewDocRef(path.Join(cal.dir, key+models.DocExt))
		cal.summary(key)
		pad := ""
		if day.Day() < 10 {
			pad = " "
		}
		return fmt.Sprintf("%s [%d](%s)", pad, day.Day(), link.URL)
	}
	if day.Month() == month {
		return fmt.Sprintf("%3d", day.Day())
	}
	return "  ."
}

// summary writes the per-day summary file for key once per render.
func (cal *calendar) summary(key string) {
	if cal.written[key] {
		return
	}
	cal.written[key] = true

	prefix := ""
	if cal.embed {
		prefix = "!"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n\n", key)
	for i, ref := range cal.ctx.Index.Docs(key) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(prefix)
		b.WriteString(ref.String())
	}
	b.WriteString("\n")

	rel := path.Join(cal.dir, key+models.DocExt)
	if err := cal.ctx.Store.Write(rel, []byte(b.String())); err != nil && cal.ctx.Logger != nil {
		cal.ctx.Logger.Warn("calendar: write day summary",
			slog.String("path", rel),
			slog.String("error", err.Error()),
		)
	}
}
