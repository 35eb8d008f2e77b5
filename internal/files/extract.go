package files

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/Rrens/rag-assistant/internal/domain"
)

// Extractor reads the text content of an uploaded file
type Extractor interface {
	Extract(ctx context.Context, file domain.UploadedFile) (string, error)
}

// DefaultExtractor reads PDF pages and XLSX rows
type DefaultExtractor struct{}

// Extract returns the file's text or an *domain.ExtractionError
func (DefaultExtractor) Extract(ctx context.Context, file domain.UploadedFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch file.Type {
	case domain.FileTypePDF:
		text, err = extractPDF(file.StoredPath)
	case domain.FileTypeXLSX:
		text, err = extractXLSX(file.StoredPath)
	default:
		err = fmt.Errorf("unsupported file type: %s", file.Type)
	}
	if err != nil {
		return "", &domain.ExtractionError{File: file.OriginalName, Err: err}
	}

	log.Debug().
		Str("file", file.OriginalName).
		Int("chars", len(text)).
		Msg("File extracted")
	return text, nil
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		text, err := pageText(r, i)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Str("path", path).Msg("Skipping unreadable page")
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "\n--- Page %d ---\n%s\n", i, text)
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("no text could be extracted from the PDF")
	}
	return out, nil
}

// pageText shields callers from panics on malformed content streams
func pageText(r *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed page: %v", rec)
		}
	}()

	page := r.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func extractXLSX(path string) (string, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	var b strings.Builder
	rowsFound := 0
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			log.Warn().Err(err).Str("sheet", sheet).Str("path", path).Msg("Skipping unreadable sheet")
			continue
		}

		fmt.Fprintf(&b, "\n--- Sheet: %s ---\n", sheet)
		for i, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if cell = strings.TrimSpace(cell); cell != "" {
					cells = append(cells, cell)
				}
			}
			if len(cells) == 0 {
				continue
			}
			fmt.Fprintf(&b, "Row %d: %s\n", i+1, strings.Join(cells, " | "))
			rowsFound++
		}
	}

	if rowsFound == 0 {
		return "", errors.New("no data could be extracted from the workbook")
	}
	return strings.TrimSpace(b.String()), nil
}
