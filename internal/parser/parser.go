// Package parser provides access-log line parsing.
package parser

import (
	"regexp"
	"strconv"
	"time"

	"logscope/internal/models"
)

// LineParser defines the interface for access-log format parsers.
type LineParser interface {
	// Name returns the parser name.
	Name() string

	// CanParse returns true if this parser can handle the log line.
	CanParse(line string) bool

	// Parse parses a log line into an AccessEntry.
	// Returns the entry and true if parsing succeeded.
	Parse(line string) (*models.AccessEntry, bool)
}

// Registry holds registered parsers and routes log lines to the first that matches.
type Registry struct {
	parsers []LineParser
}

// NewRegistry creates a parser registry with the default parsers.
// The country-annotated format is tried before plain combined.
func NewRegistry() *Registry {
	return &Registry{
		parsers: []LineParser{
			NewCountryCombinedParser(),
			NewCombinedParser(),
		},
	}
}

// Register adds a parser to the registry with highest priority.
func (r *Registry) Register(p LineParser) {
	r.parsers = append([]LineParser{p}, r.parsers...) // prepend for priority
}

// Parse tries each parser until one succeeds. The line number from raw is
// stamped onto the entry. Returns nil when no parser matches.
func (r *Registry) Parse(raw models.RawLine) *models.AccessEntry {
	for _, p := range r.parsers {
		if p.CanParse(raw.Text) {
			if entry, ok := p.Parse(raw.Text); ok {
				entry.Line = raw.Number
				return entry
			}
		}
	}
	return nil
}

// timeLayoutCountry is the timestamp layout of the country-annotated format.
// No zone is logged; timestamps are taken as UTC so minute bucketing is
// stable across machines.
const timeLayoutCountry = "02/01/2006:15:04:05"

// CountryCombinedParser parses the country-annotated combined format:
//
//	1.2.3.4 - US - [15/01/2024:10:30:00] "GET /index.html HTTP/1.1" 200 5120 "-" "Mozilla/5.0" 125
//
// The trailing integer is the response time in milliseconds.
type CountryCombinedParser struct {
	pattern *regexp.Regexp
}

// NewCountryCombinedParser creates a parser for the country-annotated format.
func NewCountryCombinedParser() *CountryCombinedParser {
	return &CountryCombinedParser{
		pattern: regexp.MustCompile(
			`^(\S+)\s+-\s+(\S+)\s+-\s+` +
				`\[([^\]]+)\]\s+` +
				`"(\S+)\s+(\S+)\s+([^"]+)"\s+` +
				`(\d{3})\s+` +
				`(\d+)\s+` +
				`"([^"]*)"\s+` +
				`"([^"]*)"\s+` +
				`(\d+)`,
		),
	}
}

// Name returns the parser name.
func (p *CountryCombinedParser) Name() string {
	return "country_combined"
}

// CanParse checks if the line matches the country-annotated format.
func (p *CountryCombinedParser) CanParse(line string) bool {
	return p.pattern.MatchString(line)
}

// Parse parses a country-annotated log line.
func (p *CountryCombinedParser) Parse(line string) (*models.AccessEntry, bool) {
	matches := p.pattern.FindStringSubmatch(line)
	if matches == nil {
		return nil, false
	}

	ts, err := time.Parse(timeLayoutCountry, matches[3])
	if err != nil {
		return nil, false
	}

	status, _ := strconv.Atoi(matches[7])
	size, _ := strconv.ParseInt(matches[8], 10, 64)
	respTime, _ := strconv.ParseInt(matches[11], 10, 64)

	return &models.AccessEntry{
		IP:        matches[1],
		Country:   matches[2],
		Time:      ts,
		Method:    matches[4],
		Path:      matches[5],
		Protocol:  matches[6],
		Status:    status,
		Size:      size,
		Referer:   matches[9],
		UserAgent: matches[10],
		RespTime:  respTime,
		Raw:       line,
	}, true
}

// CombinedParser parses the standard combined log format:
//
//	127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326 "-" "Mozilla/4.08"
//
// There is no country code and no response time.
type CombinedParser struct {
	pattern *regexp.Regexp
}

// NewCombinedParser creates a parser for the standard combined format.
func NewCombinedParser() *CombinedParser {
	return &CombinedParser{
		pattern: regexp.MustCompile(
			`^(\S+)\s+\S+\s+\S+\s+` +
				`\[([^\]]+)\]\s+` +
				`"(\S+)\s+(\S+)\s+([^"]+)"\s+` +
				`(\d{3})\s+` +
				`(\d+)\s+` +
				`"([^"]*)"\s+` +
				`"([^"]*)"`,
		),
	}
}

// Name returns the parser name.
func (p *CombinedParser) Name() string {
	return "combined"
}

// CanParse checks if the line matches the combined format.
func (p *CombinedParser) CanParse(line string) bool {
	return p.pattern.MatchString(line)
}

// Parse parses a combined log line.
func (p *CombinedParser) Parse(line string) (*models.AccessEntry, bool) {
	matches := p.pattern.FindStringSubmatch(line)
	if matches == nil {
		return nil, false
	}

	ts, err := time.Parse("02/Jan/2006:15:04:05 -0700", matches[2])
	if err != nil {
		return nil, false
	}

	status, _ := strconv.Atoi(matches[6])
	size, _ := strconv.ParseInt(matches[7], 10, 64)

	return &models.AccessEntry{
		IP:        matches[1],
		Time:      ts.UTC(),
		Method:    matches[3],
		Path:      matches[4],
		Protocol:  matches[5],
		Status:    status,
		Size:      size,
		Referer:   matches[8],
		UserAgent: matches[9],
		RespTime:  models.RespTimeUnknown,
		Raw:       line,
	}, true
}
