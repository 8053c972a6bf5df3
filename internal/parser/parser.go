package parser

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"constitution-rag/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

var (
	wordParagraphRe = regexp.MustCompile(`</w:p>`)
	xmlTagRe        = regexp.MustCompile(`<[^>]+>`)
	slideTextRe     = regexp.MustCompile(`(?s)<a:t>(.*?)</a:t>`)
)

// Load reads filePath and returns one Document per page (slide, sheet). Formats
// without pages yield a single Document numbered page 1.
func Load(ctx context.Context, filePath string) ([]schema.Document, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	var (
		docs []schema.Document
		err  error
	)
	switch ext {
	case ".pdf":
		docs, err = LoadPDF(filePath)
	case ".docx":
		docs, err = loadDOCX(filePath)
	case ".pptx":
		docs, err = loadPPTX(filePath)
	case ".xlsx":
		docs, err = loadXLSX(filePath)
	case ".xlsm":
		docs, err = loadWorkbook(filePath)
	case ".txt", ".md":
		docs, err = loadText(ctx, filePath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filePath, err)
	}
	log.Debug().Str("file", filePath).Int("pages", len(docs)).Msg("Loaded document")
	return docs, nil
}

// LoadPDF extracts the plain text of every page. Pages without content still
// produce a Document so page numbers stay aligned with the file.
func LoadPDF(filePath string) ([]schema.Document, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Get file size for reader initialization
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	return pageDocuments(filePath, reader.NumPage(), func(i int) (string, error) {
		page := reader.Page(i)
		if page.V.IsNull() {
			return "", nil
		}
		return page.GetPlainText(nil)
	})
}

func pageDocuments(source string, numPages int, pageText func(int) (string, error)) ([]schema.Document, error) {
	docs := make([]schema.Document, 0, numPages)
	for i := 1; i <= numPages; i++ {
		text, err := pageText(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		docs = append(docs, newDocument(text, source, i, numPages))
	}
	return docs, nil
}

func newDocument(text, source string, page, totalPages int) schema.Document {
	return schema.Document{
		PageContent: text,
		Metadata: map[string]any{
			models.MetaSource:     source,
			models.MetaPage:       page,
			models.MetaTotalPages: totalPages,
		},
	}
}

func loadDOCX(filePath string) ([]schema.Document, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	text := wordParagraphRe.ReplaceAllString(content, "\n")
	text = html.UnescapeString(xmlTagRe.ReplaceAllString(text, ""))

	return []schema.Document{newDocument(strings.TrimSpace(text), filePath, 1, 1)}, nil
}

func loadPPTX(filePath string) ([]schema.Document, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range f.File {
		var num int
		if _, err := fmt.Sscanf(file.Name, "ppt/slides/slide%d.xml", &num); err != nil {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		slides = append(slides, slide{num: num, text: extractSlideText(string(data))})
	}
	// zip order is arbitrary
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	docs := make([]schema.Document, 0, len(slides))
	for _, s := range slides {
		docs = append(docs, newDocument(s.text, filePath, s.num, len(slides)))
	}
	return docs, nil
}

func extractSlideText(xmlContent string) string {
	var parts []string
	for _, m := range slideTextRe.FindAllStringSubmatch(xmlContent, -1) {
		parts = append(parts, html.UnescapeString(m[1]))
	}
	return strings.Join(parts, " ")
}

func loadXLSX(filePath string) ([]schema.Document, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, 0, len(f.Sheets))
	for i, sheet := range f.Sheets {
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		docs = append(docs, newDocument(sheetText(sheet.Name, rows), filePath, i+1, len(f.Sheets)))
	}
	return docs, nil
}

// loadWorkbook reads macro-enabled workbooks, which xlsx does not open.
func loadWorkbook(filePath string) ([]schema.Document, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	docs := make([]schema.Document, 0, len(sheets))
	for i, sheetName := range sheets {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		docs = append(docs, newDocument(sheetText(sheetName, rows), filePath, i+1, len(sheets)))
	}
	return docs, nil
}

func sheetText(name string, rows [][]string) string {
	var text strings.Builder
	text.WriteString(fmt.Sprintf("## Sheet: %s\n", name))
	for _, row := range rows {
		text.WriteString(strings.Join(row, "\t"))
		text.WriteString("\n")
	}
	return text.String()
}

func loadText(ctx context.Context, filePath string) ([]schema.Document, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	loaded, err := documentloaders.NewText(f).Load(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]schema.Document, 0, len(loaded))
	for i, d := range loaded {
		docs = append(docs, newDocument(d.PageContent, filePath, i+1, len(loaded)))
	}
	return docs, nil
}
