package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/marcelsud/inbound-processor/inbound"
)

// ErrMalformedBody is returned when the request body cannot be read into input fields
var ErrMalformedBody = errors.New("malformed request body")

// NewCall converts r into the transport-neutral call the pipeline runs on.
//
// The raw body is kept byte-exact for signature checks. Input fields merge the
// query string with the form or JSON object body, body fields winning.
// Multipart files are read fully; maxMemory bounds what is kept in memory while parsing.
func NewCall(r *http.Request, maxMemory int64) (inbound.Call, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return inbound.Call{}, fmt.Errorf("reading request body: %w", err)
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	call := inbound.Call{
		Method: r.Method,
		URL:    fullURL(r),
		Header: r.Header.Clone(),
		Body:   body,
		Fields: valuesToFields(r.URL.Query()),
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case isJSON(mediaType):
		fields, err := decodeJSONFields(body)
		if err != nil {
			return call, err
		}
		merge(call.Fields, fields)

	case mediaType == "application/x-www-form-urlencoded":
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return call, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		merge(call.Fields, valuesToFields(form))

	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return call, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		defer r.MultipartForm.RemoveAll()

		merge(call.Fields, valuesToFields(r.MultipartForm.Value))
		files, err := readFiles(r.MultipartForm.File)
		if err != nil {
			return call, err
		}
		call.Files = files
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	return call, nil
}

func fullURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func isJSON(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// decodeJSONFields decodes a JSON body keeping numbers as json.Number.
// An object yields its members; an array yields its elements keyed by index.
func decodeJSONFields(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: unexpected data after JSON value", ErrMalformedBody)
	}

	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case []any:
		fields := make(map[string]any, len(t))
		for i, el := range t {
			fields[strconv.Itoa(i)] = el
		}
		return fields, nil
	default:
		return nil, nil
	}
}

// valuesToFields keeps single values as strings. Repeated keys, and keys
// written as "name[]", become lists.
func valuesToFields(values map[string][]string) map[string]any {
	fields := make(map[string]any, len(values))
	for key, vs := range values {
		name, list := strings.CutSuffix(key, "[]")
		if !list && len(vs) == 1 {
			fields[name] = vs[0]
			continue
		}
		items := make([]any, len(vs))
		for i, v := range vs {
			items[i] = v
		}
		fields[name] = items
	}
	return fields
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

func readFiles(form map[string][]*multipart.FileHeader) (map[string][]inbound.UploadedFile, error) {
	if len(form) == 0 {
		return nil, nil
	}

	files := make(map[string][]inbound.UploadedFile, len(form))
	for field, headers := range form {
		name := strings.TrimSuffix(field, "[]")
		for _, fh := range headers {
			content, err := readFile(fh)
			if err != nil {
				return nil, fmt.Errorf("reading upload %s: %w", fh.Filename, err)
			}
			files[name] = append(files[name], inbound.UploadedFile{
				OriginalName: fh.Filename,
				MimeType:     fh.Header.Get("Content-Type"),
				Size:         fh.Size,
				Content:      content,
			})
		}
	}
	return files, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
