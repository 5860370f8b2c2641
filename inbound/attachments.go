package inbound

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// attachmentFilePattern is the os.CreateTemp pattern of materialized attachments
const attachmentFilePattern = "inbound_attachment_*"

// AttachmentFile is a stored attachment materialized as a temporary file.
type AttachmentFile struct {
	*os.File
	OriginalName string
	MimeType     string
	Size         int64
	Error        int
}

/* AttachmentSet owns the temporary files of one OpenAttachments call
 * The caller must Close it once done; Close removes every file.
 */
type AttachmentSet struct {
	Files []*AttachmentFile

	once sync.Once
	err  error
}

// OpenAttachments decodes every attachment of rec into a fresh temporary file,
// positioned at offset 0. On error nothing is left on disk.
func OpenAttachments(rec Record) (*AttachmentSet, error) {
	attachments, err := rec.Attachments()
	if err != nil {
		return nil, err
	}

	set := &AttachmentSet{Files: make([]*AttachmentFile, 0, len(attachments))}
	for _, a := range attachments {
		f, err := materialize(a)
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("materializing attachment %q: %w", a.OriginalName, err)
		}
		set.Files = append(set.Files, f)
	}

	return set, nil
}

// Close closes and removes every file of the set. It is safe to call more than once.
func (s *AttachmentSet) Close() error {
	s.once.Do(func() {
		var errs []error
		for _, f := range s.Files {
			if err := f.File.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				errs = append(errs, err)
			}
			if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
		s.err = errors.Join(errs...)
	})
	return s.err
}

func materialize(a Attachment) (*AttachmentFile, error) {
	f, err := os.CreateTemp("", attachmentFilePattern)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := f.Write(a.Content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("rewinding temp file: %w", err)
	}

	return &AttachmentFile{
		File:         f,
		OriginalName: a.OriginalName,
		MimeType:     a.MimeType,
		Size:         a.Size,
		Error:        a.Error,
	}, nil
}

// decodeAttachments reads the attachments entry of a payload. Records built in
// process hold []Attachment; records read back from storage hold decoded JSON.
func decodeAttachments(raw any) ([]Attachment, error) {
	if attachments, ok := raw.([]Attachment); ok {
		return attachments, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding attachments: %w", err)
	}

	var attachments []Attachment
	if err := json.Unmarshal(data, &attachments); err != nil {
		return nil, fmt.Errorf("decoding attachments: %w", err)
	}
	return attachments, nil
}
