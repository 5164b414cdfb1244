package notifier

import (
	"fmt"
	"strings"
	"time"

	"GridSentinel/internal/dataset"

	"golang.org/x/net/html"
)

// Digest summarizes the snapshots captured over a period.
type Digest struct {
	Since        time.Time
	Until        time.Time
	Snapshots    int
	LatestUpdate string
	Totals       []dataset.EnergyTotal
}

// Status describes the poller for the /status command.
type Status struct {
	LastCycleAt  time.Time
	LastOutcome  string
	LastError    string
	LastSeen     string
	HasSeen      bool
	RetryPending bool
	Written      int
	Failed       int
}

// Messages are sent with parse_mode HTML, so every value taken from the feed
// or from an error goes through html.EscapeString.

// FormatSnapshotSummary formats a newly persisted snapshot.
func FormatSnapshotSummary(updateTime string, totals []dataset.EnergyTotal, skipped int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚡ <b>台電機組發電</b> | %s\n\n", html.EscapeString(updateTime)))
	writeTotals(&b, totals)
	if skipped > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ 略過 %d 筆格式錯誤資料\n", skipped))
	}
	return b.String()
}

// FormatDigest formats the daily digest.
func FormatDigest(d Digest) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>每日摘要</b> | %s\n\n", d.Until.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("新快照數: %d (自 %s)\n", d.Snapshots, d.Since.Format("2006-01-02 15:04")))
	if d.LatestUpdate == "" {
		b.WriteString("尚無資料\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("最新資料時間: %s\n\n", html.EscapeString(d.LatestUpdate)))
	writeTotals(&b, d.Totals)
	return b.String()
}

// FormatStatus formats the poller status.
func FormatStatus(s Status) string {
	var b strings.Builder
	b.WriteString("🛰 <b>輪詢狀態</b>\n\n")
	if s.LastCycleAt.IsZero() {
		b.WriteString("尚未執行\n")
	} else {
		b.WriteString(fmt.Sprintf("上次輪詢: %s (%s)\n", s.LastCycleAt.Format("2006-01-02 15:04:05"), html.EscapeString(s.LastOutcome)))
	}
	if s.HasSeen {
		b.WriteString(fmt.Sprintf("最後資料時間: %s\n", html.EscapeString(s.LastSeen)))
	}
	if s.RetryPending {
		b.WriteString("⚠️ 上次寫入失敗，將於下次輪詢重試\n")
	}
	if s.LastError != "" {
		b.WriteString(fmt.Sprintf("錯誤: %s\n", html.EscapeString(s.LastError)))
	}
	b.WriteString(fmt.Sprintf("已寫入: %d | 寫入失敗: %d\n", s.Written, s.Failed))
	return b.String()
}

// FormatPollResult formats the reply to an on-demand poll.
func FormatPollResult(outcome, updateTime string, err error) string {
	if err != nil {
		return fmt.Sprintf("輪詢結果: %s\n錯誤: %s", html.EscapeString(outcome), html.EscapeString(err.Error()))
	}
	return fmt.Sprintf("輪詢結果: %s (%s)", html.EscapeString(outcome), html.EscapeString(updateTime))
}

// FormatFailure reports that action failed with err.
func FormatFailure(action string, err error) string {
	return fmt.Sprintf("❌ %s失敗: %s", action, html.EscapeString(err.Error()))
}

func writeTotals(b *strings.Builder, totals []dataset.EnergyTotal) {
	if len(totals) == 0 {
		b.WriteString("無機組資料\n")
		return
	}
	for _, t := range totals {
		b.WriteString(fmt.Sprintf("  %s: %s MW / %s MW (%d 機組)\n",
			html.EscapeString(t.EnergyType), t.NetGeneration.StringFixed(1), t.InstalledCapacity.StringFixed(1), t.Units))
	}
	g := dataset.GrandTotal(totals)
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("  合計淨發電: %s MW\n", g.NetGeneration.StringFixed(1)))
}
