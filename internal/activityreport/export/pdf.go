package export

import (
	"bytes"
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-office/internal/activityreport"
)

// HTMLRenderer converts an HTML document into PDF bytes.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// RenderPDF renders the print page of rep through renderer.
func RenderPDF(ctx context.Context, renderer HTMLRenderer, rep activityreport.Report) ([]byte, error) {
	if renderer == nil {
		return nil, errors.New("export: pdf renderer not configured")
	}
	var buf bytes.Buffer
	if err := WriteHTML(&buf, rep); err != nil {
		return nil, err
	}
	return renderer.RenderHTML(ctx, buf.String())
}
