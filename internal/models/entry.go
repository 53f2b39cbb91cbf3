// Package models defines the core data structures shared across ingestion,
// parsing, stats, and reporting.
package models

import (
	"encoding/json"
	"time"
)

// RespTimeUnknown marks entries whose log format carries no response time.
const RespTimeUnknown int64 = -1

// RawLine is a single unparsed line read from a log source.
type RawLine struct {
	// Text is the line content without the trailing newline
	Text string `json:"text"`

	// Number is the 1-based line number within the source
	Number int `json:"number"`

	// Source identifies where the line came from (file path or "stdin")
	Source string `json:"source"`
}

// AccessEntry is one parsed access-log request.
type AccessEntry struct {
	// IP is the client address as logged
	IP string `json:"ip"`

	// Country is the two-letter country code, empty when the format has none
	Country string `json:"country,omitempty"`

	// Time is the request timestamp in UTC
	Time time.Time `json:"time"`

	// Method, Path, Protocol come from the quoted request line
	Method   string `json:"method"`
	Path     string `json:"path"`
	Protocol string `json:"protocol"`

	// Status is the 3-digit HTTP status code
	Status int `json:"status"`

	// Size is the response body size in bytes
	Size int64 `json:"size"`

	// Referer and UserAgent are the quoted header values, possibly empty
	Referer   string `json:"referer,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	// RespTime is the logged response time in milliseconds,
	// RespTimeUnknown when the format does not record one
	RespTime int64 `json:"resp_time"`

	// Line is the source line number
	Line int `json:"line"`

	// Raw is the original unparsed line
	Raw string `json:"raw"`
}

// HasRespTime reports whether the entry carries a response time.
func (e *AccessEntry) HasRespTime() bool {
	return e.RespTime != RespTimeUnknown
}

// ToJSON serializes the entry to JSON bytes.
func (e *AccessEntry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EntryFromJSON deserializes an AccessEntry from JSON bytes.
func EntryFromJSON(data []byte) (*AccessEntry, error) {
	var entry AccessEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// IPCount is a request count for one client IP.
type IPCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

// PathCount is a request count for one path.
type PathCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// AgentCount is the number of distinct user agents seen for one IP.
type AgentCount struct {
	IP     string `json:"ip"`
	Agents int    `json:"agents"`
}

// PeakRate is the maximum requests observed in any single minute for one IP.
type PeakRate struct {
	IP   string `json:"ip"`
	Peak int    `json:"peak"`
}

// SlowRequest is one of the slowest requests in the analyzed window.
type SlowRequest struct {
	IP       string    `json:"ip"`
	Time     time.Time `json:"time"`
	Path     string    `json:"path"`
	RespTime int64     `json:"resp_time"`
}

// Report is the full analysis output for one file or one watch window.
type Report struct {
	// Source is the analyzed file path or "stdin"
	Source string `json:"source"`

	// TotalLines is the number of lines read
	TotalLines int `json:"total_lines"`

	// ParsedLines is the number of lines that matched a known format
	ParsedLines int `json:"parsed_lines"`

	// SkippedLines is the number of lines no parser matched
	SkippedLines int `json:"skipped_lines"`

	// TotalBytes is the sum of response sizes across parsed entries
	TotalBytes int64 `json:"total_bytes"`

	TopIPs         []IPCount     `json:"top_ips"`
	Slowest        []SlowRequest `json:"slowest"`
	TopPaths       []PathCount   `json:"top_paths"`
	AgentDiversity []AgentCount  `json:"agent_diversity"`
	PeakRates      []PeakRate    `json:"peak_rates"`

	// Bots are IPs whose peak requests-per-minute exceeded RPMThreshold
	Bots []PeakRate `json:"bots"`

	// RPMThreshold is the bot-flagging threshold the report was built with
	RPMThreshold int `json:"rpm_threshold"`

	// GeneratedAt is when the report was produced
	GeneratedAt time.Time `json:"generated_at"`
}

// ToJSON serializes the report to indented JSON bytes.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ReportFromJSON deserializes a Report from JSON bytes.
func ReportFromJSON(data []byte) (*Report, error) {
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
