// Package report renders analysis reports as styled text or JSON.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"logscope/internal/errors"
	"logscope/internal/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Format selects the report output encoding.
type Format string

const (
	// FormatText is the human-readable styled report.
	FormatText Format = "text"
	// FormatJSON is the machine-readable report.
	FormatJSON Format = "json"
)

// timeLayout is how request timestamps appear in text reports.
const timeLayout = "02/01/2006 15:04:05"

// Renderer writes reports to an output stream.
type Renderer struct {
	w       io.Writer
	heading lipgloss.Style
	accent  lipgloss.Style
	dim     lipgloss.Style
}

// NewRenderer creates a renderer. When color is false all styles are
// pass-through, which is also the right choice for piped output.
func NewRenderer(w io.Writer, color bool) *Renderer {
	r := &Renderer{w: w}
	if color {
		r.heading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
		r.accent = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
		r.dim = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	} else {
		r.heading = lipgloss.NewStyle()
		r.accent = lipgloss.NewStyle()
		r.dim = lipgloss.NewStyle()
	}
	return r
}

// Render writes the report in the requested format.
func (r *Renderer) Render(rep *models.Report, format Format) error {
	switch format {
	case FormatJSON:
		return r.JSON(rep)
	case FormatText, "":
		return r.Text(rep)
	default:
		return errors.NewConfigValidationError("format", format, "must be text or json")
	}
}

// JSON writes the report as indented JSON.
func (r *Renderer) JSON(rep *models.Report) error {
	data, err := rep.ToJSON()
	if err != nil {
		return errors.NewReportEncodeError("json", err)
	}
	if _, err := fmt.Fprintf(r.w, "%s\n", data); err != nil {
		return errors.NewReportWriteError(err)
	}
	return nil
}

// Text writes the human-readable report.
func (r *Renderer) Text(rep *models.Report) error {
	out := &errWriter{w: r.w}

	fmt.Fprintf(out, "%s %s\n",
		r.heading.Render("Access log report:"), rep.Source)
	fmt.Fprintf(out, "%s lines parsed, %s skipped, %s transferred\n\n",
		r.accent.Render(humanize.Comma(int64(rep.ParsedLines))),
		humanize.Comma(int64(rep.SkippedLines)),
		humanize.Bytes(uint64(rep.TotalBytes)))

	r.section(out, fmt.Sprintf("Top %d IPs by request count", len(rep.TopIPs)))
	tw := newTab(out)
	for _, c := range rep.TopIPs {
		fmt.Fprintf(tw, "  %s\t%d\n", c.IP, c.Count)
	}
	tw.Flush()

	if len(rep.Slowest) > 0 {
		r.section(out, fmt.Sprintf("Top %d slowest requests", len(rep.Slowest)))
		tw = newTab(out)
		for _, s := range rep.Slowest {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%dms\n",
				s.IP, s.Time.Format(timeLayout), s.Path, s.RespTime)
		}
		tw.Flush()
	}

	r.section(out, fmt.Sprintf("Top %d paths (most requested)", len(rep.TopPaths)))
	tw = newTab(out)
	for _, p := range rep.TopPaths {
		fmt.Fprintf(tw, "  %s\t%d\n", p.Path, p.Count)
	}
	tw.Flush()

	r.section(out, "User-agent diversity (distinct UAs per IP)")
	tw = newTab(out)
	for _, a := range rep.AgentDiversity {
		fmt.Fprintf(tw, "  %s\t%d\n", a.IP, a.Agents)
	}
	tw.Flush()

	r.section(out, "Peak requests-per-minute per IP")
	tw = newTab(out)
	for _, p := range rep.PeakRates {
		fmt.Fprintf(tw, "  %s\t%d\n", p.IP, p.Peak)
	}
	tw.Flush()

	r.section(out, fmt.Sprintf("IPs exceeding %d RPM: %d found", rep.RPMThreshold, len(rep.Bots)))
	for _, b := range rep.Bots {
		fmt.Fprintf(out, "  - %s %s\n", b.IP, r.dim.Render(fmt.Sprintf("(peak %d rpm)", b.Peak)))
	}

	if out.err != nil {
		return errors.NewReportWriteError(out.err)
	}
	return nil
}

// BotList writes flagged IPs only, one per line, for scripting.
func (r *Renderer) BotList(rep *models.Report) error {
	for _, b := range rep.Bots {
		if _, err := fmt.Fprintln(r.w, b.IP); err != nil {
			return errors.NewReportWriteError(err)
		}
	}
	return nil
}

func (r *Renderer) section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", r.heading.Render(title+":"))
}

func newTab(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// errWriter remembers the first write error so render code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
		return len(p), nil
	}
	return n, nil
}
