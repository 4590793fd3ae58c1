package fields

import (
	"fmt"
	"mime/multipart"
	"net/url"
	"strings"

	"infinite-experiment/plp/internal/host"
)

// Input is the submitted request data fields read their values from.
type Input interface {
	Get(name string) (string, bool)
	GetAll(name string) []string
	// Nested returns name[key] entries keyed by key.
	Nested(name string) map[string]string
	// Upload returns nil, nil when no file came with name.
	Upload(name string) (*host.Upload, error)
}

// FormInput adapts a parsed form or multipart form.
type FormInput struct {
	Values url.Values
	Files  map[string][]*multipart.FileHeader
}

var _ Input = FormInput{}

func (in FormInput) Get(name string) (string, bool) {
	vs, ok := in.Values[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// GetAll accepts both name=a&name=b and name[]=a&name[]=b.
func (in FormInput) GetAll(name string) []string {
	if vs := in.Values[name+"[]"]; len(vs) > 0 {
		return vs
	}
	return in.Values[name]
}

func (in FormInput) Nested(name string) map[string]string {
	prefix := name + "["
	out := make(map[string]string)
	for k, vs := range in.Values {
		if !strings.HasPrefix(k, prefix) || !strings.HasSuffix(k, "]") || len(vs) == 0 {
			continue
		}
		key := k[len(prefix) : len(k)-1]
		if key == "" {
			continue
		}
		out[key] = vs[0]
	}
	return out
}

func (in FormInput) Upload(name string) (*host.Upload, error) {
	fhs := in.Files[name]
	if len(fhs) == 0 || fhs[0].Size == 0 {
		return nil, nil
	}
	fh := fhs[0]
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	return &host.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Content:     f,
	}, nil
}

// MapInput is an in-memory Input, used by callers that submit JSON bodies.
type MapInput struct {
	Values  map[string][]string
	Uploads map[string]*host.Upload
}

var _ Input = MapInput{}

func (in MapInput) Get(name string) (string, bool) {
	vs, ok := in.Values[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func (in MapInput) GetAll(name string) []string {
	return in.Values[name]
}

func (in MapInput) Nested(name string) map[string]string {
	return FormInput{Values: in.Values}.Nested(name)
}

func (in MapInput) Upload(name string) (*host.Upload, error) {
	return in.Uploads[name], nil
}
