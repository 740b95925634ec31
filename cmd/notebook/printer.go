package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/QuesmaOrg/demo-webr-ggplot/code"
	"github.com/QuesmaOrg/demo-webr-ggplot/exec"
)

// printer renders display messages on a terminal.
type printer struct {
	out     io.Writer
	title   cases.Caser
	styles  map[code.Category]lipgloss.Style
	muted   lipgloss.Style
	plotDir string
	plots   int
}

func newPrinter(out io.Writer, plotDir string) *printer {
	r := lipgloss.NewRenderer(out)
	return &printer{
		out:   out,
		title: cases.Title(language.English),
		styles: map[code.Category]lipgloss.Style{
			code.CategoryStdout:  r.NewStyle(),
			code.CategoryStderr:  r.NewStyle().Foreground(lipgloss.Color("9")),
			code.CategoryInfo:    r.NewStyle().Foreground(lipgloss.Color("12")),
			code.CategoryWarning: r.NewStyle().Foreground(lipgloss.Color("11")),
			code.CategoryError:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			code.CategorySuccess: r.NewStyle().Foreground(lipgloss.Color("10")),
			code.CategoryPlot:    r.NewStyle().Foreground(lipgloss.Color("13")),
		},
		muted:   r.NewStyle().Faint(true),
		plotDir: plotDir,
	}
}

// label returns the title-cased category name, e.g. "Warning".
func (p *printer) label(c code.Category) string {
	return p.title.String(string(c))
}

// Message prints one message. Stdout text is printed as is; other
// categories are prefixed with their label.
func (p *printer) Message(msg code.DisplayMessage) {
	style := p.styles[msg.Category]
	switch msg.Category {
	case code.CategoryStdout:
		fmt.Fprintln(p.out, msg.Text)
	case code.CategoryPlot:
		fmt.Fprintln(p.out, style.Render(p.label(msg.Category)+": "+p.savePlot(msg.Plot)))
	default:
		fmt.Fprintln(p.out, style.Render(p.label(msg.Category)+": "+msg.Text))
	}
}

// Result prints the messages of a run followed by its duration.
func (p *printer) Result(res exec.RunResult) {
	for _, msg := range res.Messages {
		p.Message(msg)
	}
	fmt.Fprintln(p.out, p.muted.Render(fmt.Sprintf("(%d ms)", res.DurationMs)))
}

// Muted prints a de-emphasized line.
func (p *printer) Muted(format string, args ...any) {
	fmt.Fprintln(p.out, p.muted.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) savePlot(plot *code.Plot) string {
	if plot == nil {
		return "missing image"
	}
	desc := fmt.Sprintf("%s, %d bytes", plot.MIMEType, len(plot.Data))
	if plot.Width > 0 && plot.Height > 0 {
		desc = fmt.Sprintf("%s, %dx%d", desc, plot.Width, plot.Height)
	}
	if p.plotDir == "" {
		return desc
	}

	p.plots++
	path := filepath.Join(p.plotDir, fmt.Sprintf("plot-%03d%s", p.plots, plotExt(plot.MIMEType)))
	if err := os.MkdirAll(p.plotDir, 0o755); err != nil {
		return fmt.Sprintf("%s (not saved: %v)", desc, err)
	}
	if err := os.WriteFile(path, plot.Data, 0o644); err != nil {
		return fmt.Sprintf("%s (not saved: %v)", desc, err)
	}
	return path
}

func plotExt(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/svg+xml":
		return ".svg"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
