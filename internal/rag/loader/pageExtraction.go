package loader

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

// extractPDF emits one unit per non-empty page; unreadable pages are skipped.
func (l *Loader) extractPDF(path string, base map[string]any) ([]commonModels.Unit, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return nil, loadError(path, "failed to open pdf", err)
	}

	var units []commonModels.Unit
	numPages := f.NumPage()
	l.logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page, l.opts.PageTimeout)
		if err != nil {
			l.logger.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}

		metadata := commonModels.CopyMetadata(base)
		metadata["page"] = i
		units = append(units, commonModels.Unit{Text: content, Metadata: metadata})
	}
	return units, nil
}

// extractDocument reads .docx, .odt and .rtf through the generic extractor.
func extractDocument(path string, base map[string]any) ([]commonModels.Unit, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, loadError(path, "failed to extract document text", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return []commonModels.Unit{{Text: text, Metadata: commonModels.CopyMetadata(base)}}, nil
}

func readVerbatim(path string, base map[string]any) ([]commonModels.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, loadError(path, "failed to read file", err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []commonModels.Unit{{Text: text, Metadata: commonModels.CopyMetadata(base)}}, nil
}

func protectExtract(page pdf.Page, timeout time.Duration) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(timeout):
		return "", errors.New("page extraction timed out")
	}
}
