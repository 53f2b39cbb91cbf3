package parser

import (
	"testing"
	"time"

	"logscope/internal/models"
)

const sampleCountryLine = `203.0.113.9 - US - [15/01/2024:10:30:00] "GET /search?q=x HTTP/1.1" 200 5120 "https://example.com/" "Mozilla/5.0" 125`

const sampleCombinedLine = `127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326 "-" "Mozilla/4.08"`

func TestCountryCombinedParser_CanParse(t *testing.T) {
	p := NewCountryCombinedParser()

	tests := []struct {
		name string
		line string
		want bool
	}{
		{"full line", sampleCountryLine, true},
		{"empty referer and agent", `10.0.0.1 - DE - [01/02/2024:00:00:00] "POST /api HTTP/2" 404 0 "" "" 3`, true},
		{"plain combined", sampleCombinedLine, false},
		{"missing response time", `10.0.0.1 - DE - [01/02/2024:00:00:00] "GET / HTTP/1.1" 200 10 "-" "-"`, false},
		{"two digit status", `10.0.0.1 - DE - [01/02/2024:00:00:00] "GET / HTTP/1.1" 20 10 "-" "-" 5`, false},
		{"garbage", "not a log line at all", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanParse(tt.line); got != tt.want {
				t.Errorf("CountryCombinedParser.CanParse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountryCombinedParser_Parse(t *testing.T) {
	p := NewCountryCombinedParser()

	entry, ok := p.Parse(sampleCountryLine)
	if !ok {
		t.Fatal("CountryCombinedParser.Parse() ok = false, want true")
	}

	if entry.IP != "203.0.113.9" {
		t.Errorf("ip = %q, want %q", entry.IP, "203.0.113.9")
	}
	if entry.Country != "US" {
		t.Errorf("country = %q, want %q", entry.Country, "US")
	}
	wantTime := time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)
	if !entry.Time.Equal(wantTime) {
		t.Errorf("time = %v, want %v", entry.Time, wantTime)
	}
	if entry.Method != "GET" {
		t.Errorf("method = %q, want GET", entry.Method)
	}
	if entry.Path != "/search?q=x" {
		t.Errorf("path = %q, want /search?q=x", entry.Path)
	}
	if entry.Protocol != "HTTP/1.1" {
		t.Errorf("protocol = %q, want HTTP/1.1", entry.Protocol)
	}
	if entry.Status != 200 {
		t.Errorf("status = %d, want 200", entry.Status)
	}
	if entry.Size != 5120 {
		t.Errorf("size = %d, want 5120", entry.Size)
	}
	if entry.Referer != "https://example.com/" {
		t.Errorf("referer = %q", entry.Referer)
	}
	if entry.UserAgent != "Mozilla/5.0" {
		t.Errorf("user agent = %q", entry.UserAgent)
	}
	if entry.RespTime != 125 {
		t.Errorf("resp time = %d, want 125", entry.RespTime)
	}
	if !entry.HasRespTime() {
		t.Error("HasRespTime() = false, want true")
	}
	if entry.Raw != sampleCountryLine {
		t.Errorf("raw = %q, want original line", entry.Raw)
	}
}

func TestCountryCombinedParser_Parse_BadTimestamp(t *testing.T) {
	p := NewCountryCombinedParser()

	// Day and month swapped past the end of the month range.
	line := `10.0.0.1 - DE - [2024/01/15:00:00:00] "GET / HTTP/1.1" 200 10 "-" "-" 5`
	if _, ok := p.Parse(line); ok {
		t.Error("Parse() ok = true for unparsable timestamp, want false")
	}
}

func TestCombinedParser_Parse(t *testing.T) {
	p := NewCombinedParser()

	if !p.CanParse(sampleCombinedLine) {
		t.Fatal("CombinedParser.CanParse() = false, want true")
	}

	entry, ok := p.Parse(sampleCombinedLine)
	if !ok {
		t.Fatal("CombinedParser.Parse() ok = false, want true")
	}

	if entry.IP != "127.0.0.1" {
		t.Errorf("ip = %q, want 127.0.0.1", entry.IP)
	}
	if entry.Country != "" {
		t.Errorf("country = %q, want empty", entry.Country)
	}
	// 13:55:36 -0700 normalizes to 20:55:36 UTC.
	wantTime := time.Date(2000, time.October, 10, 20, 55, 36, 0, time.UTC)
	if !entry.Time.Equal(wantTime) {
		t.Errorf("time = %v, want %v", entry.Time, wantTime)
	}
	if entry.Status != 200 || entry.Size != 2326 {
		t.Errorf("status/size = %d/%d, want 200/2326", entry.Status, entry.Size)
	}
	if entry.HasRespTime() {
		t.Error("HasRespTime() = true for combined format, want false")
	}
}

func TestRegistry_Parse(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name     string
		line     string
		wantNil  bool
		wantIP   string
		wantLine int
	}{
		{"country format", sampleCountryLine, false, "203.0.113.9", 7},
		{"combined fallback", sampleCombinedLine, false, "127.0.0.1", 12},
		{"unparsable", "2024-01-15 ERROR something failed", true, "", 1},
		{"empty", "", true, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := r.Parse(models.RawLine{Text: tt.line, Number: tt.wantLine, Source: "test.log"})
			if tt.wantNil {
				if entry != nil {
					t.Fatalf("Registry.Parse() = %+v, want nil", entry)
				}
				return
			}
			if entry == nil {
				t.Fatal("Registry.Parse() = nil, want entry")
			}
			if entry.IP != tt.wantIP {
				t.Errorf("ip = %q, want %q", entry.IP, tt.wantIP)
			}
			if entry.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", entry.Line, tt.wantLine)
			}
		})
	}
}

// rejectAllParser claims every line but parses none, to prove priority order.
type rejectAllParser struct{}

func (rejectAllParser) Name() string             { return "reject_all" }
func (rejectAllParser) CanParse(string) bool     { return true }
func (rejectAllParser) Parse(string) (*models.AccessEntry, bool) {
	return nil, false
}

func TestRegistry_Register_Priority(t *testing.T) {
	r := NewRegistry()
	r.Register(rejectAllParser{})

	// The prepended parser claims the line but fails; the registry must
	// fall through to the country parser.
	entry := r.Parse(models.RawLine{Text: sampleCountryLine, Number: 1})
	if entry == nil {
		t.Fatal("Registry.Parse() = nil after failing high-priority parser")
	}
	if entry.Country != "US" {
		t.Errorf("country = %q, want US", entry.Country)
	}
}
