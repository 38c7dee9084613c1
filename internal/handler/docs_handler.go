package handler

import (
	_ "embed"
	"net/http"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// DocsHandler はAPIドキュメントを配信するHTTPハンドラー。
type DocsHandler struct{}

// NewDocsHandler はDocsHandlerを生成する。
func NewDocsHandler() *DocsHandler {
	return &DocsHandler{}
}

// ServeOpenAPI は埋め込み済みのOpenAPIドキュメントを配信する。
// GET /api/docs/openapi.yaml
func (h *DocsHandler) ServeOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(openAPIDocument)
}
