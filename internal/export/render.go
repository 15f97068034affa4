// Package export renders summaries as downloadable documents and stores
// them for presigned download.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

const (
	fontName = "Times New Roman"
	fontSize = 13
)

// Render encodes doc in the given format
func Render(doc models.ExportDocument, format models.ExportFormat) ([]byte, error) {
	switch format {
	case models.ExportTXT:
		return renderText(doc), nil
	case models.ExportHTML:
		return renderHTML(doc)
	case models.ExportDOCX:
		return renderDocx(doc)
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}

type section struct {
	Heading string
	Body    string
}

// sections lists the non-empty parts of a document in display order
func sections(doc models.ExportDocument) []section {
	all := []section{
		{Heading: "Extractive Summary", Body: doc.Extractive},
		{Heading: "Abstractive Summary", Body: doc.Abstractive},
		{Heading: "Transcript", Body: doc.Transcript},
	}

	out := make([]section, 0, len(all))
	for _, s := range all {
		if strings.TrimSpace(s.Body) != "" {
			out = append(out, s)
		}
	}
	return out
}

func title(doc models.ExportDocument) string {
	t := strings.TrimSpace(doc.Title)
	if t == "" {
		t = "Video Summary"
	}
	if doc.Language != "" {
		t += " (" + doc.Language + ")"
	}
	return t
}

func renderText(doc models.ExportDocument) []byte {
	var b strings.Builder
	b.WriteString(title(doc))
	b.WriteString("\n")

	for _, s := range sections(doc) {
		b.WriteString("\n")
		b.WriteString(s.Heading)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", len(s.Heading)))
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(s.Body))
		b.WriteString("\n")
	}

	return []byte(b.String())
}

var htmlTemplate = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
{{- range .Sections}}
<h2>{{.Heading}}</h2>
<p>{{.Body}}</p>
{{- end}}
</body>
</html>
`))

func renderHTML(doc models.ExportDocument) ([]byte, error) {
	lang := doc.Language
	if lang == "" {
		lang = "en"
	}

	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, struct {
		Lang     string
		Title    string
		Sections []section
	}{Lang: lang, Title: title(doc), Sections: sections(doc)})
	if err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}
	return buf.Bytes(), nil
}

func renderDocx(doc models.ExportDocument) ([]byte, error) {
	d, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	addRun(d.AddParagraph(""), title(doc), true, 16)

	for _, s := range sections(doc) {
		d.AddParagraph("")
		addRun(d.AddParagraph(""), s.Heading, true, 14)
		for _, para := range strings.Split(strings.TrimSpace(s.Body), "\n") {
			if para = strings.TrimSpace(para); para != "" {
				addRun(d.AddParagraph(""), para, false, fontSize)
			}
		}
	}

	// godocx writes to a path, so round-trip through a temp file
	dir, err := os.MkdirTemp("", "vidsum-export-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "export.docx")
	if err := d.SaveTo(path); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

func addRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
