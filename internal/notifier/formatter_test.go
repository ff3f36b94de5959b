package notifier

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PeakHour/internal/model"
)

func TestRankSlots_ScalesAboveMaxWidth(t *testing.T) {
	counts := model.SlotCounts{5, 0, 20, 10, 0, 0, 0}
	ranked := RankSlots(counts)
	require.Len(t, ranked, 3)

	assert.Equal(t, []int{2, 3, 0}, []int{ranked[0].Slot, ranked[1].Slot, ranked[2].Slot})
	assert.Equal(t, []int{15, 7, 3}, []int{ranked[0].Bar, ranked[1].Bar, ranked[2].Bar})
	assert.Equal(t, "57.1", ranked[0].Percent)
	assert.Equal(t, "28.6", ranked[1].Percent)
	assert.Equal(t, "14.3", ranked[2].Percent)
}

func TestRankSlots_NoScalingUpToMaxWidth(t *testing.T) {
	ranked := RankSlots(model.SlotCounts{15, 1})
	require.Len(t, ranked, 2)
	assert.Equal(t, 15, ranked[0].Bar)
	assert.Equal(t, 1, ranked[1].Bar)
}

func TestRankSlots_TiesKeepSlotOrder(t *testing.T) {
	counts := model.NewSlotCounts(model.HourSlots)
	counts[17] = 3
	counts[4] = 3
	counts[9] = 5
	ranked := RankSlots(counts)
	require.Len(t, ranked, 3)
	assert.Equal(t, 9, ranked[0].Slot)
	assert.Equal(t, 4, ranked[1].Slot)
	assert.Equal(t, 17, ranked[2].Slot)
}

func TestRankSlots_Empty(t *testing.T) {
	assert.Nil(t, RankSlots(model.NewSlotCounts(model.WeekdaySlots)))
}

func TestPercent(t *testing.T) {
	tests := []struct {
		count, total int
		want         string
	}{
		{1, 8, "12.5"},
		{2, 3, "66.7"},
		{4, 4, "100.0"},
		{5, 11, "45.5"},
		// exact halves round to even
		{1, 16, "6.2"},
		{5, 16, "31.2"},
		{3, 16, "18.8"},
		{1, 80, "1.2"},
		{1, 400, "0.2"},
		{3, 400, "0.8"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, percent(tt.count, tt.total), "%d/%d", tt.count, tt.total)
	}
}

func TestDailyReport_HalfPercentRoundsToEven(t *testing.T) {
	high := model.NewSlotCounts(model.HourSlots)
	high[9] = 15
	high[14] = 1
	res := &model.StatsResult{Mode: model.ModeDaily, HighCounts: high, LowCounts: high, PeriodsProcessed: 16}

	got := DailyReport("ES1!", "EST (美國/紐約)", res)
	assert.Contains(t, got, "09:00: *************** (15 次, 93.8%)\n")
	assert.Contains(t, got, "14:00: * (1 次, 6.2%)\n")
}

func TestDailyReport(t *testing.T) {
	high := model.NewSlotCounts(model.HourSlots)
	high[9] = 2
	high[15] = 1
	low := model.NewSlotCounts(model.HourSlots)
	low[10] = 3
	res := &model.StatsResult{Mode: model.ModeDaily, HighCounts: high, LowCounts: low, PeriodsProcessed: 3}

	got := DailyReport("NQ1!", "EST (美國/紐約)", res)
	want := "📊 日內高低點統計報告 📊\n\n" +
		"資產: NQ1!\n" +
		"統計天數: 3\n" +
		"數據時區: EST (美國/紐約)\n\n" +
		"📈 日內高點創立小時統計:\n" +
		"09:00: ** (2 次, 66.7%)\n" +
		"15:00: * (1 次, 33.3%)\n\n" +
		"📉 日內低點創立小時統計:\n" +
		"10:00: *** (3 次, 100.0%)\n\n" +
		"---總結---\n" +
		"🚀 最常創立日內高點的時間是：09:00 (出現 2 次)\n" +
		"⬇️ 最常創立日內低點的時間是：10:00 (出現 3 次)\n"
	assert.Equal(t, want, got)
}

func TestWeeklyReport_SummaryListsTies(t *testing.T) {
	res := &model.StatsResult{
		Mode:             model.ModeWeekly,
		HighCounts:       model.SlotCounts{5, 0, 5, 1, 0, 0, 0},
		LowCounts:        model.SlotCounts{0, 0, 0, 0, 11, 0, 0},
		PeriodsProcessed: 11,
	}
	got := WeeklyReport("XAUUSD", "EST (美國/紐約)", res)

	assert.Contains(t, got, "統計週數: 11\n")
	assert.Contains(t, got, "🚀 最常創立每週高點的時間是：星期一, 星期三 (出現 5 次)\n")
	assert.Contains(t, got, "⬇️ 最常創立每週低點的時間是：星期五 (出現 11 次)\n")
	assert.Contains(t, got, "星期一: ***** (5 次, 45.5%)\n星期三: ***** (5 次, 45.5%)\n星期四: * (1 次, 9.1%)\n")
}

func TestRender_EmptySectionsHaveNoSummary(t *testing.T) {
	empty := model.NewSlotCounts(model.WeekdaySlots)
	got := Render(WeeklyLayout, "HK50", 0, "HKT (中國/香港)", empty, empty, WeekdayLabel)

	assert.True(t, strings.HasSuffix(got, "---總結---\n"))
	assert.NotContains(t, got, "次")
}

func TestRender_Deterministic(t *testing.T) {
	res := &model.StatsResult{
		HighCounts:       model.SlotCounts{3, 3, 30, 0, 1, 0, 2},
		LowCounts:        model.SlotCounts{0, 7, 7, 7, 0, 0, 0},
		PeriodsProcessed: 39,
	}
	first := WeeklyReport("ES1!", "EDT (美國/紐約)", res)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, WeeklyReport("ES1!", "EDT (美國/紐約)", res))
	}
}

func TestZoneLine(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	assert.Equal(t, "EST (美國/紐約)", ZoneLine(loc, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "EDT (美國/紐約)", ZoneLine(loc, time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)))

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	assert.Equal(t, "CET (Europe/Berlin)", ZoneLine(berlin, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "07:00", HourLabel(7))
	assert.Equal(t, "23:00", HourLabel(23))
	assert.Equal(t, "星期日", WeekdayLabel(6))
	assert.Equal(t, "#9", WeekdayLabel(9))
}
