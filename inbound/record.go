package inbound

import (
	"sort"
	"time"
)

// AttachmentsKey is the payload entry holding captured file uploads.
const AttachmentsKey = "attachments"

/* Record is the durable representation of one accepted call
 * Uses value semantics as it represents data, not behavior
 */
type Record struct {
	ID        string
	Name      string
	URL       string
	Headers   map[string][]string
	Payload   map[string]any
	Exception *Exception
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attachment is an uploaded file captured into a record payload.
// Content is encoded as base64 when the payload is marshaled to JSON.
type Attachment struct {
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	Error        int    `json:"error"`
	Content      []byte `json:"content"`
}

// Exception is the structured snapshot of the last dispatch failure.
type Exception struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Trace   string `json:"trace"`
}

// BuildPayload merges the call input fields and, when files were uploaded,
// adds the attachments list with the full file contents.
func BuildPayload(call Call) map[string]any {
	payload := make(map[string]any, len(call.Fields)+1)
	for k, v := range call.Fields {
		payload[k] = v
	}

	if call.HasFiles() {
		payload[AttachmentsKey] = captureFiles(call.Files)
	}

	return payload
}

// captureFiles flattens every field's files into attachments.
// Field names are visited in sorted order so the list is stable.
func captureFiles(files map[string][]UploadedFile) []Attachment {
	fields := make([]string, 0, len(files))
	for field := range files {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var attachments []Attachment
	for _, field := range fields {
		for _, f := range files[field] {
			content := make([]byte, len(f.Content))
			copy(content, f.Content)
			attachments = append(attachments, Attachment{
				OriginalName: f.OriginalName,
				MimeType:     f.MimeType,
				Size:         f.Size,
				Error:        f.Error,
				Content:      content,
			})
		}
	}
	return attachments
}

// Attachments returns the attachments held in the record payload.
// Payloads decoded from storage hold generic JSON values, so both shapes are read.
func (r Record) Attachments() ([]Attachment, error) {
	raw, ok := r.Payload[AttachmentsKey]
	if !ok || raw == nil {
		return nil, nil
	}
	return decodeAttachments(raw)
}
