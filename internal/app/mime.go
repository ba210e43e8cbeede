package app

import (
	"log/slog"
	"mime"

	"github.com/odyssey-erp/odyssey-office/internal/activityreport/export"
)

// staticTypes are registered on minimal images whose mime tables lack them.
var staticTypes = map[string]string{
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".svg":  "image/svg+xml",
	".csv":  "text/csv; charset=utf-8",
	".docx": export.DOCXContentType,
	".xlsx": export.XLSXContentType,
}

func init() {
	for ext, typ := range staticTypes {
		ensureMimeType(ext, typ)
	}
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}
