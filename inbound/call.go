package inbound

import "net/http"

/* Call is one inbound webhook-style request as the pipeline sees it.
 * It carries no *http.Request so calls can also come from non-HTTP transports.
 */
type Call struct {
	Method string
	URL    string
	Header http.Header
	// Body holds the exact raw bytes received. Signatures are computed over it.
	Body []byte
	// Fields are the non-file input fields (query, form and JSON object body).
	Fields map[string]any
	// Files maps the upload field name to the files sent under it.
	Files map[string][]UploadedFile
}

// UploadedFile is a file received with a call, fully read into memory.
type UploadedFile struct {
	OriginalName string
	MimeType     string
	Size         int64
	// Error is the upload error code reported by the transport, 0 when ok.
	Error   int
	Content []byte
}

// HasFiles reports whether the call carries at least one uploaded file
func (c Call) HasFiles() bool {
	for _, files := range c.Files {
		if len(files) > 0 {
			return true
		}
	}
	return false
}
