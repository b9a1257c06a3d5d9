// Package intake validates files handed over by a capture surface before
// they reach the upload orchestrator.
package intake

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dmitrijs2005/dropzone/internal/client/models"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxSize is the per-file size limit applied when none is configured.
const DefaultMaxSize int64 = 131072

// DefaultAccept maps accepted MIME types to their file extensions.
func DefaultAccept() map[string][]string {
	return map[string][]string{
		"application/pdf": {".pdf"},

		"application/msword": {".doc"},
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {".docx"},

		"application/vnd.ms-excel": {".xls"},
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {".xlsx"},

		"application/vnd.ms-powerpoint": {".ppt"},
		"application/vnd.openxmlformats-officedocument.presentationml.presentation": {".pptx"},

		"text/plain":      {".txt"},
		"application/rtf": {".rtf"},

		"application/vnd.oasis.opendocument.text":         {".odt"},
		"application/vnd.oasis.opendocument.spreadsheet":  {".ods"},
		"application/vnd.oasis.opendocument.presentation": {".odp"},
	}
}

// Rules restrict what a drop may contain. Zero values disable a limit; a
// nil Accept accepts every type.
type Rules struct {
	Accept   map[string][]string
	MaxSize  int64
	MinSize  int64
	MaxFiles int
}

// Rejection explains why a file was not accepted.
type Rejection struct {
	Name    string
	Message string
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Name, r.Message)
}

type Validator struct {
	rules Rules
	exts  []string
}

func NewValidator(r Rules) *Validator {
	v := &Validator{rules: r}
	for _, list := range r.Accept {
		for _, e := range list {
			v.exts = append(v.exts, strings.ToLower(e))
		}
	}
	slices.Sort(v.exts)
	v.exts = slices.Compact(v.exts)
	return v
}

func (v *Validator) Rules() Rules { return v.rules }

// AcceptedExtensions lists the accepted extensions in sorted order.
func (v *Validator) AcceptedExtensions() []string {
	return slices.Clone(v.exts)
}

// Validate splits files into accepted and rejected ones. When the drop holds
// more files than allowed, every file is rejected.
func (v *Validator) Validate(files []models.RawFile) ([]models.RawFile, []Rejection) {
	accepted := make([]models.RawFile, 0, len(files))
	var rejected []Rejection

	if v.rules.MaxFiles > 0 && len(files) > v.rules.MaxFiles {
		for _, f := range files {
			rejected = append(rejected, Rejection{Name: f.Name, Message: "Too many files"})
		}
		return accepted, rejected
	}

	for _, f := range files {
		if msg := v.check(f); msg != "" {
			rejected = append(rejected, Rejection{Name: f.Name, Message: msg})
			continue
		}
		accepted = append(accepted, f)
	}
	return accepted, rejected
}

func (v *Validator) check(f models.RawFile) string {
	if !v.typeAllowed(f) {
		if len(v.exts) == 1 {
			return "File type must be " + v.exts[0]
		}
		return "File type must be one of " + strings.Join(v.exts, ", ")
	}
	if v.rules.MaxSize > 0 && f.Size > v.rules.MaxSize {
		return fmt.Sprintf("File is larger than %d %s", v.rules.MaxSize, plural(v.rules.MaxSize, "byte"))
	}
	if v.rules.MinSize > 0 && f.Size < v.rules.MinSize {
		return fmt.Sprintf("File is smaller than %d %s", v.rules.MinSize, plural(v.rules.MinSize, "byte"))
	}
	return ""
}

func (v *Validator) typeAllowed(f models.RawFile) bool {
	if v.rules.Accept == nil {
		return true
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	if ext != "" && slices.Contains(v.exts, ext) {
		return true
	}
	if f.MIMEType == "" {
		return false
	}
	_, ok := v.rules.Accept[f.MIMEType]
	return ok
}

func plural(n int64, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// ReadFile loads a file from disk. The MIME type comes from the extension,
// or is sniffed from the content when the extension is unknown. When maxSize
// is positive, a larger file is returned with its size and type but without
// content, so Validate rejects it without the file ever being loaded.
func ReadFile(path string, maxSize int64) (models.RawFile, error) {
	name := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		return models.RawFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return models.RawFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	if st.IsDir() {
		return models.RawFile{}, fmt.Errorf("read %s: is a directory", path)
	}

	if maxSize > 0 && st.Size() > maxSize {
		return models.RawFile{Name: name, Size: st.Size(), MIMEType: detectHeader(name, f)}, nil
	}

	var r io.Reader = f
	if maxSize > 0 {
		// The file may have grown since Stat.
		r = io.LimitReader(f, maxSize+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return models.RawFile{}, fmt.Errorf("read %s: %w", path, err)
	}

	out := models.RawFile{
		Name:     name,
		Size:     int64(len(content)),
		Content:  content,
		MIMEType: DetectMIME(name, content),
	}
	if maxSize > 0 && out.Size > maxSize {
		out.Content = nil
	}
	return out, nil
}

// DetectMIME returns the media type without parameters.
func DetectMIME(name string, content []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return baseType(t)
	}
	return baseType(mimetype.Detect(content).String())
}

// detectHeader is DetectMIME reading only as much of r as sniffing needs.
func detectHeader(name string, r io.Reader) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return baseType(t)
	}
	m, err := mimetype.DetectReader(r)
	if err != nil {
		return ""
	}
	return baseType(m.String())
}

func baseType(t string) string {
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}

// ReadFiles loads every path with ReadFile. Unreadable paths are returned
// as rejections.
func ReadFiles(paths []string, maxSize int64) ([]models.RawFile, []Rejection) {
	files := make([]models.RawFile, 0, len(paths))
	var rejected []Rejection
	for _, p := range paths {
		f, err := ReadFile(p, maxSize)
		if err != nil {
			rejected = append(rejected, Rejection{Name: filepath.Base(p), Message: err.Error()})
			continue
		}
		files = append(files, f)
	}
	return files, rejected
}
