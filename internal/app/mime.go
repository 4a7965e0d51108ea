package app

import (
	"log/slog"
	"mime"
)

func init() {
	ensureMimeType(".css", "text/css; charset=utf-8")
	ensureMimeType(".js", "text/javascript; charset=utf-8")
	ensureMimeType(".csv", "text/csv; charset=utf-8")
	ensureMimeType(".svg", "image/svg+xml")
}

// ensureMimeType registers typ for ext when the host mime tables lack it,
// which happens in slim containers without /etc/mime.types.
func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}
