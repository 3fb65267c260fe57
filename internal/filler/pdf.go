package filler

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/unidoc/unipdf/v3/core"
	"github.com/unidoc/unipdf/v3/model"
)

var pdfMetadataOnce sync.Once

// normalizePdfMetadata pins the Producer/Creator and date fields the pdf
// writer would otherwise stamp with the current time, so that filling the
// same template with the same values twice produces byte-identical files.
func normalizePdfMetadata() {
	pdfMetadataOnce.Do(func() {
		model.SetPdfProducer("autofill")
		model.SetPdfCreator("autofill")
		model.SetPdfCreationDate(fixedFillTime)
		model.SetPdfModifiedDate(fixedFillTime)
	})
}

// FormWidgetFiller fills named AcroForm widgets in a PDF template. Widgets
// whose name matches no field key are left untouched.
type FormWidgetFiller struct{}

// Fill sets the value of every form field whose normalized name matches a
// key in the value map and writes the result back out.
func (f *FormWidgetFiller) Fill(ctx context.Context, template []byte, values map[string]string) ([]byte, error) {
	normalizePdfMetadata()

	reader, err := model.NewPdfReader(bytes.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf template: %w", err)
	}

	acroForm := reader.AcroForm
	if acroForm != nil {
		for _, field := range acroForm.AllFields() {
			name, err := field.FullName()
			if err != nil {
				name = field.PartialName()
			}

			value, ok := values[normalizeWidgetName(name)]
			if !ok {
				continue
			}
			field.V = core.MakeString(value)
		}
	}

	writer := model.NewPdfWriter()
	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to count pdf pages: %w", err)
	}
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		if err := writer.AddPage(page); err != nil {
			return nil, fmt.Errorf("failed to copy pdf page %d: %w", i, err)
		}
	}
	if acroForm != nil {
		if err := writer.SetForms(acroForm); err != nil {
			return nil, fmt.Errorf("failed to attach filled form: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := writer.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write filled pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// normalizeWidgetName strips the parenthesis and bracket artifacts some PDF
// producers leave around field names, so "(amount)" matches the key
// "amount".
func normalizeWidgetName(name string) string {
	name = strings.TrimSpace(name)
	for len(name) >= 2 {
		first, last := name[0], name[len(name)-1]
		if (first == '(' && last == ')') || (first == '[' && last == ']') {
			name = strings.TrimSpace(name[1 : len(name)-1])
			continue
		}
		break
	}
	return name
}

var _ Filler = (*FormWidgetFiller)(nil)
