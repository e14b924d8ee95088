// Package script renders an install plan into a self-contained PowerShell
// installer and the batch launcher used when no native executable is built.
//
// Rendering is a pure function of the plan and a timestamp: two renders of the
// same plan differ only in the "Generated:" header line. Every catalog value is
// emitted as a PowerShell single-quoted literal, so names, URLs and silent
// arguments are never interpolated or executed.
package script

import (
	"bytes"
	"embed"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/plan"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// TimestampFormat is the layout of the generation timestamp in the script header
const TimestampFormat = time.RFC3339

// Renderer renders install plans to PowerShell
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("installer.ps1.tmpl").
		Funcs(template.FuncMap{
			"ps":      QuoteLiteral,
			"comment": commentSafe,
		}).
		ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse installer templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

var defaultRenderer = mustRenderer()

func mustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Render renders p with the default renderer
func Render(p plan.InstallPlan, generatedAt time.Time) (string, error) {
	return defaultRenderer.Render(p, generatedAt)
}

type stanzaData struct {
	Index       int
	Name        string
	Label       string
	UseDirect   bool
	UseManager  bool
	SourceURL   string
	FileName    string
	IsMSI       bool
	SilentArgs  string
	ManagerID   string
	DirectTries int
}

type scriptData struct {
	Timestamp   string
	Total       int
	Auto        int
	Manual      int
	Stanzas     []stanzaData
	ManualURLs  []string
	ManualNames []string // manual items with no web page, listed on completion
}

// Render produces the installer script for p
func (r *Renderer) Render(p plan.InstallPlan, generatedAt time.Time) (string, error) {
	data := scriptData{
		Timestamp: generatedAt.UTC().Format(TimestampFormat),
		Total:     p.Len(),
		Auto:      len(p.AutoInstall),
		Manual:    len(p.ManualOnly),
	}

	for i, item := range p.AutoInstall {
		data.Stanzas = append(data.Stanzas, newStanza(i+1, item))
	}
	for _, item := range p.ManualOnly {
		if isOpenableURL(item.Strategy.OpenURL) {
			data.ManualURLs = append(data.ManualURLs, item.Strategy.OpenURL)
		} else {
			data.ManualNames = append(data.ManualNames, item.DisplayName)
		}
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "installer.ps1.tmpl", data); err != nil {
		return "", fmt.Errorf("failed to render installer script: %w", err)
	}
	return buf.String(), nil
}

func newStanza(index int, item plan.InstallItem) stanzaData {
	s := item.Strategy
	st := stanzaData{
		Index:       index,
		Name:        item.DisplayName,
		DirectTries: plan.DirectAttempts,
	}

	for _, attempt := range s.Attempts() {
		switch attempt.Method {
		case plan.MethodDirect:
			st.UseDirect = true
			st.DirectTries = attempt.Tries
		case plan.MethodPackageManager:
			st.UseManager = true
		}
	}

	switch s.Kind {
	case plan.StrategyDirectWithFallback:
		st.Label = "direct download, winget fallback"
	case plan.StrategyDirect:
		st.Label = "direct download"
	case plan.StrategyPackageManager:
		st.Label = "winget"
	}

	if st.UseDirect {
		st.SourceURL = s.SourceURL
		st.IsMSI = s.Format == plan.FormatInstallerPackage
		st.SilentArgs = s.SilentArgs
		st.FileName = fmt.Sprintf("%s.%s", item.ID, extension(s.Format))
	}
	if st.UseManager {
		st.ManagerID = s.ManagerPackageID
	}
	return st
}

func extension(f plan.PackageFormat) string {
	if f == plan.FormatInstallerPackage {
		return "msi"
	}
	return "exe"
}

// isOpenableURL limits manual pages to web URLs so Start-Process only opens a browser
func isOpenableURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// PowerShell treats the typographic single quotes as quote characters too.
var singleQuotes = []rune{'\'', '\u2018', '\u2019', '\u201a', '\u201b'}

// QuoteLiteral returns s as a PowerShell single-quoted string literal
func QuoteLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		b.WriteRune(r)
		for _, q := range singleQuotes {
			if r == q {
				b.WriteRune(r)
				break
			}
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// commentSafe keeps a value on a single comment line
func commentSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '\u2028' || r == '\u2029' || r == '\u0085' {
			return ' '
		}
		return r
	}, s)
}

// RenderLauncher returns a batch file that runs scriptName from its own directory.
// Lines end in CRLF.
func RenderLauncher(scriptName string) string {
	lines := []string{
		"@echo off",
		"chcp 65001 >nul",
		"echo Starting KodLaewLong Installer...",
		fmt.Sprintf(`powershell -NoProfile -ExecutionPolicy Bypass -File "%%~dp0%s"`, scriptName),
		"pause",
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}
