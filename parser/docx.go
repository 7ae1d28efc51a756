package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type DOCXParser struct{}

func (p *DOCXParser) SupportedFormats() []string { return []string{"docx"} }

// Parse keeps every body paragraph with visible text, one per line, then
// appends tables as pipe-separated rows. The paragraphs metadata counts all
// body paragraphs, including blank ones.
func (p *DOCXParser) Parse(ctx context.Context, path string) (*Document, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening DOCX: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in DOCX")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("opening document.xml: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	var doc docxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing DOCX XML: %w", err)
	}

	var b strings.Builder
	headings := 0
	for _, para := range doc.Body.Paras {
		text := para.text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		if para.isHeading() {
			headings++
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	for _, tbl := range doc.Body.Tables {
		b.WriteString("\n")
		for _, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				parts := make([]string, 0, len(cell.Paras))
				for _, p := range cell.Paras {
					if t := strings.TrimSpace(p.text()); t != "" {
						parts = append(parts, t)
					}
				}
				cells = append(cells, strings.Join(parts, " "))
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
	}

	return &Document{
		FileType:    TypeDOCX,
		TextContent: strings.TrimSpace(b.String()),
		Metadata: map[string]any{
			"paragraphs": len(doc.Body.Paras),
			"headings":   headings,
			"tables":     len(doc.Body.Tables),
		},
	}, nil
}

// DOCX XML structures (simplified)
type docxDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    docxBody `xml:"body"`
}

type docxBody struct {
	Paras  []docxPara  `xml:"p"`
	Tables []docxTable `xml:"tbl"`
}

type docxPara struct {
	PPr  *docxParaPr `xml:"pPr"`
	Runs []docxRun   `xml:"r"`
	// Runs wrapped in hyperlinks carry text too.
	Links []struct {
		Runs []docxRun `xml:"r"`
	} `xml:"hyperlink"`
}

type docxParaPr struct {
	PStyle *struct {
		Val string `xml:"val,attr"`
	} `xml:"pStyle"`
}

type docxRun struct {
	Text []struct {
		Content string `xml:",chardata"`
	} `xml:"t"`
	Tabs []struct{} `xml:"tab"`
}

type docxTable struct {
	Rows []struct {
		Cells []struct {
			Paras []docxPara `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

func (p docxPara) text() string {
	var b strings.Builder
	write := func(runs []docxRun) {
		for _, run := range runs {
			for range run.Tabs {
				b.WriteString("\t")
			}
			for _, t := range run.Text {
				b.WriteString(t.Content)
			}
		}
	}
	write(p.Runs)
	for _, link := range p.Links {
		write(link.Runs)
	}
	return b.String()
}

func (p docxPara) isHeading() bool {
	if p.PPr == nil || p.PPr.PStyle == nil {
		return false
	}
	style := strings.ToLower(p.PPr.PStyle.Val)
	return strings.HasPrefix(style, "heading") || strings.HasPrefix(style, "title")
}
