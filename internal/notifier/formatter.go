package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"PeakHour/internal/model"
)

// MaxBarWidth is the widest bar drawn for a single slot.
const MaxBarWidth = 15

const barGlyph = "*"

// SlotNamer maps a slot index to its display label.
type SlotNamer func(slot int) string

var weekdayNames = [model.WeekdaySlots]string{"星期一", "星期二", "星期三", "星期四", "星期五", "星期六", "星期日"}

// HourLabel names an hour-of-day slot, e.g. "07:00".
func HourLabel(slot int) string {
	return fmt.Sprintf("%02d:00", slot)
}

// WeekdayLabel names a weekday slot, 0=Monday.
func WeekdayLabel(slot int) string {
	if slot < 0 || slot >= len(weekdayNames) {
		return fmt.Sprintf("#%d", slot)
	}
	return weekdayNames[slot]
}

// Layout holds the fixed texts of one report kind.
type Layout struct {
	Title       string
	PeriodLabel string
	HighHeading string
	LowHeading  string
	HighSummary string
	LowSummary  string
}

var (
	// DailyLayout renders hour-of-day reports.
	DailyLayout = Layout{
		Title:       "📊 日內高低點統計報告 📊",
		PeriodLabel: "統計天數",
		HighHeading: "📈 日內高點創立小時統計:",
		LowHeading:  "📉 日內低點創立小時統計:",
		HighSummary: "🚀 最常創立日內高點的時間是：",
		LowSummary:  "⬇️ 最常創立日內低點的時間是：",
	}
	// WeeklyLayout renders weekday reports.
	WeeklyLayout = Layout{
		Title:       "📊 每週高低點統計報告 📊",
		PeriodLabel: "統計週數",
		HighHeading: "📈 每週高點創立星期統計:",
		LowHeading:  "📉 每週低點創立星期統計:",
		HighSummary: "🚀 最常創立每週高點的時間是：",
		LowSummary:  "⬇️ 最常創立每週低點的時間是：",
	}
)

var zoneNames = map[string]string{
	"America/New_York": "美國/紐約",
	"Asia/Taipei":      "台灣/台北",
	"Asia/Hong_Kong":   "中國/香港",
	"Europe/London":    "英國/倫敦",
	"UTC":              "協調世界時",
}

// ZoneLine describes the reference timezone as of at, e.g. "EST (美國/紐約)".
func ZoneLine(loc *time.Location, at time.Time) string {
	abbr, _ := at.In(loc).Zone()
	name, ok := zoneNames[loc.String()]
	if !ok {
		name = loc.String()
	}
	return fmt.Sprintf("%s (%s)", abbr, name)
}

// RankedSlot is one rendered line of a report section.
type RankedSlot struct {
	Slot    int
	Count   int
	Percent string
	Bar     int
}

// RankSlots orders non-zero slots by count descending, lower slot first on
// ties, and scales bars so the top slot is at most MaxBarWidth glyphs.
func RankSlots(counts model.SlotCounts) []RankedSlot {
	total := counts.Total()
	if total == 0 {
		return nil
	}

	ranked := make([]RankedSlot, 0, len(counts))
	for slot, c := range counts {
		if c > 0 {
			ranked = append(ranked, RankedSlot{Slot: slot, Count: c, Percent: percent(c, total)})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })

	maxCount := ranked[0].Count
	for i := range ranked {
		ranked[i].Bar = barLength(ranked[i].Count, maxCount)
	}
	return ranked
}

// barLength is floor(count / (maxCount / MaxBarWidth)) once maxCount exceeds
// the width, computed in integers.
func barLength(count, maxCount int) int {
	if maxCount <= MaxBarWidth {
		return count
	}
	return count * MaxBarWidth / maxCount
}

// percent formats count/total as a percentage with one decimal, exact halves
// rounding to even.
func percent(count, total int) string {
	return decimal.NewFromInt(int64(count) * 100).
		Div(decimal.NewFromInt(int64(total))).
		StringFixedBank(1)
}

// Render composes the full text report. It is a pure function of its inputs.
func Render(layout Layout, asset string, periods int, zone string, high, low model.SlotCounts, name SlotNamer) string {
	var b strings.Builder

	b.WriteString(layout.Title + "\n\n")
	b.WriteString(fmt.Sprintf("資產: %s\n", asset))
	b.WriteString(fmt.Sprintf("%s: %d\n", layout.PeriodLabel, periods))
	b.WriteString(fmt.Sprintf("數據時區: %s\n\n", zone))

	writeSection(&b, layout.HighHeading, high, name)
	writeSection(&b, layout.LowHeading, low, name)

	b.WriteString("---總結---\n")
	writeSummary(&b, layout.HighSummary, high, name)
	writeSummary(&b, layout.LowSummary, low, name)

	return b.String()
}

func writeSection(b *strings.Builder, heading string, counts model.SlotCounts, name SlotNamer) {
	b.WriteString(heading + "\n")
	for _, r := range RankSlots(counts) {
		b.WriteString(fmt.Sprintf("%s: %s (%d 次, %s%%)\n",
			name(r.Slot), strings.Repeat(barGlyph, r.Bar), r.Count, r.Percent))
	}
	b.WriteString("\n")
}

func writeSummary(b *strings.Builder, prefix string, counts model.SlotCounts, name SlotNamer) {
	if counts.Total() == 0 {
		return
	}
	top := counts.Max()
	var labels []string
	for slot, c := range counts {
		if c == top {
			labels = append(labels, name(slot))
		}
	}
	b.WriteString(fmt.Sprintf("%s%s (出現 %d 次)\n", prefix, strings.Join(labels, ", "), top))
}

// DailyReport renders an hour-of-day report for a daily stats result.
func DailyReport(asset, zone string, res *model.StatsResult) string {
	return Render(DailyLayout, asset, res.PeriodsProcessed, zone, res.HighCounts, res.LowCounts, HourLabel)
}

// WeeklyReport renders a weekday report for a weekly stats result.
func WeeklyReport(asset, zone string, res *model.StatsResult) string {
	return Render(WeeklyLayout, asset, res.PeriodsProcessed, zone, res.HighCounts, res.LowCounts, WeekdayLabel)
}
