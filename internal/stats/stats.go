// Package stats aggregates access entries into traffic statistics.
//
// The Accumulator is the analytical core: it ingests parsed entries and
// answers ranking queries (top IPs, slowest requests, top paths, user-agent
// diversity, peak requests-per-minute) plus bot flagging. All rankings are
// deterministic: descending by value, ties ascending by key.
package stats

import (
	"sort"
	"time"

	"logscope/internal/errors"
	"logscope/internal/models"

	"github.com/samber/lo"
)

// DefaultTopN is the default number of rows per ranking.
const DefaultTopN = 10

// DefaultRPMThreshold is the default peak requests-per-minute above which
// an IP is flagged as a bot.
const DefaultRPMThreshold = 100

// Accumulator ingests access entries and computes traffic statistics.
// It is not safe for concurrent use; callers feed it from a single goroutine.
type Accumulator struct {
	entries      []*models.AccessEntry
	ipCounts     map[string]int
	pathCounts   map[string]int
	agentsByIP   map[string]map[string]struct{}
	minuteCounts map[string]map[time.Time]int
	totalBytes   int64
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		ipCounts:     make(map[string]int),
		pathCounts:   make(map[string]int),
		agentsByIP:   make(map[string]map[string]struct{}),
		minuteCounts: make(map[string]map[time.Time]int),
	}
}

// Add ingests one parsed entry.
func (a *Accumulator) Add(entry *models.AccessEntry) {
	if entry == nil {
		return
	}

	a.entries = append(a.entries, entry)
	a.ipCounts[entry.IP]++
	a.pathCounts[entry.Path]++
	a.totalBytes += entry.Size

	agents, ok := a.agentsByIP[entry.IP]
	if !ok {
		agents = make(map[string]struct{})
		a.agentsByIP[entry.IP] = agents
	}
	agents[entry.UserAgent] = struct{}{}

	minute := entry.Time.Truncate(time.Minute)
	buckets, ok := a.minuteCounts[entry.IP]
	if !ok {
		buckets = make(map[time.Time]int)
		a.minuteCounts[entry.IP] = buckets
	}
	buckets[minute]++
}

// Len returns the number of ingested entries.
func (a *Accumulator) Len() int {
	return len(a.entries)
}

// TotalBytes returns the sum of response sizes across ingested entries.
func (a *Accumulator) TotalBytes() int64 {
	return a.totalBytes
}

// Reset clears all state so the accumulator can start a new window.
func (a *Accumulator) Reset() {
	a.entries = nil
	a.ipCounts = make(map[string]int)
	a.pathCounts = make(map[string]int)
	a.agentsByIP = make(map[string]map[string]struct{})
	a.minuteCounts = make(map[string]map[time.Time]int)
	a.totalBytes = 0
}

// TopIPs returns the n IPs with the most requests.
func (a *Accumulator) TopIPs(n int) []models.IPCount {
	counts := lo.MapToSlice(a.ipCounts, func(ip string, count int) models.IPCount {
		return models.IPCount{IP: ip, Count: count}
	})
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].IP < counts[j].IP
	})
	return head(counts, n)
}

// TopPaths returns the n most requested paths.
func (a *Accumulator) TopPaths(n int) []models.PathCount {
	counts := lo.MapToSlice(a.pathCounts, func(path string, count int) models.PathCount {
		return models.PathCount{Path: path, Count: count}
	})
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Path < counts[j].Path
	})
	return head(counts, n)
}

// Slowest returns the n entries with the largest response times.
// Entries whose format carries no response time are excluded.
func (a *Accumulator) Slowest(n int) []models.SlowRequest {
	timed := lo.Filter(a.entries, func(e *models.AccessEntry, _ int) bool {
		return e.HasRespTime()
	})
	sort.Slice(timed, func(i, j int) bool {
		if timed[i].RespTime != timed[j].RespTime {
			return timed[i].RespTime > timed[j].RespTime
		}
		return timed[i].Line < timed[j].Line
	})
	timed = head(timed, n)

	return lo.Map(timed, func(e *models.AccessEntry, _ int) models.SlowRequest {
		return models.SlowRequest{
			IP:       e.IP,
			Time:     e.Time,
			Path:     e.Path,
			RespTime: e.RespTime,
		}
	})
}

// AgentDiversity returns the n IPs with the most distinct user agents.
// A high count is a bot signal: scrapers rotate user-agent strings.
func (a *Accumulator) AgentDiversity(n int) []models.AgentCount {
	counts := lo.MapToSlice(a.agentsByIP, func(ip string, agents map[string]struct{}) models.AgentCount {
		return models.AgentCount{IP: ip, Agents: len(agents)}
	})
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Agents != counts[j].Agents {
			return counts[i].Agents > counts[j].Agents
		}
		return counts[i].IP < counts[j].IP
	})
	return head(counts, n)
}

// PeakRatePerIP returns, for every IP, the maximum number of requests seen
// in any single calendar minute, descending.
func (a *Accumulator) PeakRatePerIP() []models.PeakRate {
	peaks := lo.MapToSlice(a.minuteCounts, func(ip string, buckets map[time.Time]int) models.PeakRate {
		return models.PeakRate{IP: ip, Peak: lo.Max(lo.Values(buckets))}
	})
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].Peak != peaks[j].Peak {
			return peaks[i].Peak > peaks[j].Peak
		}
		return peaks[i].IP < peaks[j].IP
	})
	return peaks
}

// FlagBots returns the IPs whose peak requests-per-minute is strictly
// greater than threshold, in descending peak order.
func (a *Accumulator) FlagBots(threshold int) []models.PeakRate {
	return lo.Filter(a.PeakRatePerIP(), func(p models.PeakRate, _ int) bool {
		return p.Peak > threshold
	})
}

// BuildReport assembles a full report from the accumulated entries.
// totalLines and skippedLines come from the ingestion side; topN and
// rpmThreshold fall back to the package defaults when non-positive.
// Returns ErrAnalyzeNoEntries when nothing was parsed.
func (a *Accumulator) BuildReport(source string, totalLines, skippedLines, topN, rpmThreshold int) (*models.Report, error) {
	if a.Len() == 0 {
		return nil, errors.NewAnalyzeNoEntriesError(source, totalLines)
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	if rpmThreshold <= 0 {
		rpmThreshold = DefaultRPMThreshold
	}

	return &models.Report{
		Source:         source,
		TotalLines:     totalLines,
		ParsedLines:    a.Len(),
		SkippedLines:   skippedLines,
		TotalBytes:     a.totalBytes,
		TopIPs:         a.TopIPs(topN),
		Slowest:        a.Slowest(topN),
		TopPaths:       a.TopPaths(topN),
		AgentDiversity: a.AgentDiversity(topN),
		PeakRates:      head(a.PeakRatePerIP(), topN),
		Bots:           a.FlagBots(rpmThreshold),
		RPMThreshold:   rpmThreshold,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// head returns at most n leading elements of s.
func head[T any](s []T, n int) []T {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}
