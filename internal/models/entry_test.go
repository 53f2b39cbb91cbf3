package models

import (
	"testing"
	"time"
)

func TestAccessEntry_JSONRoundTrip(t *testing.T) {
	ts := time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)
	entry := &AccessEntry{
		IP:        "203.0.113.9",
		Country:   "US",
		Time:      ts,
		Method:    "GET",
		Path:      "/search",
		Protocol:  "HTTP/1.1",
		Status:    200,
		Size:      5120,
		Referer:   "https://example.com/",
		UserAgent: "Mozilla/5.0",
		RespTime:  125,
		Line:      42,
		Raw:       "raw line",
	}

	data, err := entry.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := EntryFromJSON(data)
	if err != nil {
		t.Fatalf("EntryFromJSON() error = %v", err)
	}

	if got.IP != entry.IP || got.Country != entry.Country {
		t.Errorf("ip/country = %q/%q, want %q/%q", got.IP, got.Country, entry.IP, entry.Country)
	}
	if !got.Time.Equal(ts) {
		t.Errorf("time = %v, want %v", got.Time, ts)
	}
	if got.Status != 200 || got.Size != 5120 || got.RespTime != 125 {
		t.Errorf("status/size/resp = %d/%d/%d", got.Status, got.Size, got.RespTime)
	}
	if got.Line != 42 || got.Raw != "raw line" {
		t.Errorf("line/raw = %d/%q", got.Line, got.Raw)
	}
}

func TestEntryFromJSON_Invalid(t *testing.T) {
	if _, err := EntryFromJSON([]byte(`{"ip": broken}`)); err == nil {
		t.Error("EntryFromJSON() error = nil for invalid JSON")
	}
}

func TestAccessEntry_HasRespTime(t *testing.T) {
	tests := []struct {
		name     string
		respTime int64
		want     bool
	}{
		{"measured", 125, true},
		{"zero is a valid measurement", 0, true},
		{"unknown", RespTimeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &AccessEntry{RespTime: tt.respTime}
			if got := e.HasRespTime(); got != tt.want {
				t.Errorf("HasRespTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReport_JSONRoundTrip(t *testing.T) {
	rep := &Report{
		Source:       "access.log",
		TotalLines:   100,
		ParsedLines:  98,
		SkippedLines: 2,
		TotalBytes:   1 << 20,
		TopIPs:       []IPCount{{IP: "10.0.0.1", Count: 50}},
		Slowest: []SlowRequest{
			{IP: "10.0.0.1", Time: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), Path: "/slow", RespTime: 5000},
		},
		TopPaths:       []PathCount{{Path: "/", Count: 80}},
		AgentDiversity: []AgentCount{{IP: "10.0.0.1", Agents: 3}},
		PeakRates:      []PeakRate{{IP: "10.0.0.1", Peak: 120}},
		Bots:           []PeakRate{{IP: "10.0.0.1", Peak: 120}},
		RPMThreshold:   100,
		GeneratedAt:    time.Now().UTC().Truncate(time.Second),
	}

	data, err := rep.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := ReportFromJSON(data)
	if err != nil {
		t.Fatalf("ReportFromJSON() error = %v", err)
	}

	if got.Source != rep.Source || got.TotalLines != rep.TotalLines {
		t.Errorf("source/total = %q/%d", got.Source, got.TotalLines)
	}
	if len(got.TopIPs) != 1 || got.TopIPs[0].Count != 50 {
		t.Errorf("top IPs = %+v", got.TopIPs)
	}
	if len(got.Bots) != 1 || got.Bots[0].IP != "10.0.0.1" {
		t.Errorf("bots = %+v", got.Bots)
	}
	if got.RPMThreshold != 100 {
		t.Errorf("threshold = %d, want 100", got.RPMThreshold)
	}
}
