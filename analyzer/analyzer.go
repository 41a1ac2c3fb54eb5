// Package analyzer scans serialized log rows, attributes each row to a bot
// via the pattern registry, and builds aggregate usage reports.
package analyzer

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/crawlytics/botmap"
	"github.com/crawlytics/csvlog"
)

const dateLayout = "2006-01-02"

// Analyzer aggregates classified traffic. It holds no state across calls;
// the registry is read-only after load, so one Analyzer may serve many runs.
type Analyzer struct {
	registry *botmap.Registry
	now      func() time.Time
}

// New creates an Analyzer. A nil clock defaults to time.Now; tests inject a
// fixed clock to pin the window.
func New(registry *botmap.Registry, now func() time.Time) *Analyzer {
	if now == nil {
		now = time.Now
	}
	return &Analyzer{registry: registry, now: now}
}

// botAccum accumulates one bot's counters during a scan. Insertion order of
// paths is kept so equal counts rank in first-seen order.
type botAccum struct {
	name      string
	isLLM     bool
	total     int
	daily     map[string]int
	paths     map[string]int
	pathOrder []string
}

// Analyze scans rows, keeps those dated inside the last daysBack days,
// classifies each row's agent and accumulates per-bot totals, daily series
// and path rankings. Rows with missing or bad dates, rows older than the
// window, and rows not attributed to any bot are skipped. A nil rows source
// yields a structurally complete empty report.
func (a *Analyzer) Analyze(rows *csvlog.RowReader, daysBack int) (*Report, error) {
	now := a.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -daysBack)

	bots := make(map[string]*botAccum)
	var botOrder []string
	overallTotal := 0
	overallPaths := make(map[string]struct{})

	if rows != nil {
		for {
			row, err := rows.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("reading rows: %w", err)
			}

			dateStr := strings.TrimSpace(row["date"])
			if dateStr == "" {
				continue
			}
			rowDate, err := time.Parse(dateLayout, dateStr)
			if err != nil {
				continue
			}
			if rowDate.Before(start) {
				continue
			}

			path := strings.TrimSpace(row["path"])
			if path == "" {
				path = "/"
			}

			c := a.registry.Classify(strings.TrimSpace(row["user_agent"]))
			if !c.IsBot {
				continue
			}

			acc, ok := bots[c.BotName]
			if !ok {
				acc = &botAccum{
					name:  c.BotName,
					daily: make(map[string]int),
					paths: make(map[string]int),
				}
				bots[c.BotName] = acc
				botOrder = append(botOrder, c.BotName)
			}

			acc.total++
			acc.daily[dateStr]++
			if _, seen := acc.paths[path]; !seen {
				acc.pathOrder = append(acc.pathOrder, path)
			}
			acc.paths[path]++
			acc.isLLM = c.IsLLM

			overallTotal++
			overallPaths[path] = struct{}{}
		}
	}

	report := &Report{
		GeneratedAt: now.Format(time.RFC3339),
		Window: Window{
			From: start.Format(dateLayout),
			To:   today.Format(dateLayout),
		},
		Overall: Overall{
			TotalRequests: overallTotal,
			UniqueBots:    len(bots),
			UniquePaths:   len(overallPaths),
		},
		Bots: make([]BotReport, 0, len(bots)),
	}

	for _, name := range botOrder {
		acc := bots[name]

		daily := make([]DailyCount, 0, len(acc.daily))
		for date, count := range acc.daily {
			daily = append(daily, DailyCount{Date: date, Requests: count})
		}
		sort.Slice(daily, func(i, j int) bool {
			return daily[i].Date < daily[j].Date
		})

		paths := make([]PathCount, 0, len(acc.pathOrder))
		for _, p := range acc.pathOrder {
			paths = append(paths, PathCount{Path: p, Requests: acc.paths[p]})
		}
		sort.SliceStable(paths, func(i, j int) bool {
			return paths[i].Requests > paths[j].Requests
		})

		report.Bots = append(report.Bots, BotReport{
			BotName:       acc.name,
			IsLLM:         acc.isLLM,
			TotalRequests: acc.total,
			DailyRequests: daily,
			TopPaths:      paths,
		})
	}

	sort.SliceStable(report.Bots, func(i, j int) bool {
		return report.Bots[i].TotalRequests > report.Bots[j].TotalRequests
	})

	return report, nil
}
