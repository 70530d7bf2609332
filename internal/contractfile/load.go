package contractfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Loader reads manifests.
type Loader struct {
	now func() time.Time
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithClock sets the clock used to stamp contracts that declare no
// timestamp.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		l.now = now
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsManifest reports whether path has a manifest extension.
func IsManifest(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

// LoadDir loads every manifest under dir in lexical path order.
func (l *Loader) LoadDir(dir string) (*Manifest, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsManifest(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Path: dir, Message: "scan directory", Err: err}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Path: dir, Message: "no .yaml, .yml or .cue files found"}
	}
	slices.Sort(files)

	out := &Manifest{}
	for _, path := range files {
		m, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		out.merge(m)
	}
	return out, nil
}

// LoadFile loads one manifest, choosing the format by extension.
func (l *Loader) LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Path: path, Message: "read file", Err: err}
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return l.LoadYAML(path, data)
	case ".cue":
		return l.LoadCUE(path, data)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupported, Path: path, Message: "unsupported manifest extension"}
	}
}

// LoadYAML parses a YAML manifest. path is used for error messages and as
// the descriptors' source.
func (l *Loader) LoadYAML(path string, data []byte) (*Manifest, error) {
	var doc yamlDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error(), Err: err}
	}

	m := &Manifest{
		Tests: doc.Artifacts.Tests,
		Specs: doc.Artifacts.Specs,
		Files: []string{path},
	}
	for _, group := range []struct {
		kind  Kind
		specs []descriptorSpec
	}{
		{KindRule, doc.Rules},
		{KindConstraint, doc.Constraints},
	} {
		for _, spec := range group.specs {
			d, err := build(spec, group.kind, path, l.now)
			if err != nil {
				return nil, &LoadError{Code: ErrCodeInvalid, Path: path, ID: spec.ID, Message: err.Error(), Err: err}
			}
			m.Descriptors = append(m.Descriptors, d)
		}
	}
	return m, nil
}

// LoadCUE evaluates a CUE manifest.
func (l *Loader) LoadCUE(path string, data []byte) (*Manifest, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(path, err)
	}
	if err := v.Validate(); err != nil {
		return nil, cueLoadError(path, err)
	}

	m := &Manifest{Files: []string{path}}
	for _, group := range []struct {
		kind  Kind
		field string
	}{
		{KindRule, "rules"},
		{KindConstraint, "constraints"},
	} {
		groupVal := v.LookupPath(cue.ParsePath(group.field))
		if !groupVal.Exists() {
			continue
		}
		iter, err := groupVal.Fields()
		if err != nil {
			return nil, cueLoadError(path, err)
		}
		for iter.Next() {
			var spec descriptorSpec
			if err := iter.Value().Decode(&spec); err != nil {
				return nil, cueLoadError(path, err)
			}
			id := iter.Label()
			if spec.ID != "" && spec.ID != id {
				return nil, &LoadError{
					Code:    ErrCodeInvalid,
					Path:    path,
					ID:      id,
					Message: fmt.Sprintf("id field %q does not match label", spec.ID),
					Pos:     iter.Value().Pos(),
				}
			}
			spec.ID = id
			d, err := build(spec, group.kind, path, l.now)
			if err != nil {
				return nil, &LoadError{Code: ErrCodeInvalid, Path: path, ID: id, Message: err.Error(), Pos: iter.Value().Pos(), Err: err}
			}
			m.Descriptors = append(m.Descriptors, d)
		}
	}

	if av := v.LookupPath(cue.ParsePath("artifacts")); av.Exists() {
		var arts artifactSpec
		if err := av.Decode(&arts); err != nil {
			return nil, cueLoadError(path, err)
		}
		m.Tests = arts.Tests
		m.Specs = arts.Specs
	}
	return m, nil
}

// cueLoadError keeps the position of the first CUE error.
func cueLoadError(path string, err error) *LoadError {
	le := &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error(), Err: err}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		le.Message = errs[0].Error()
		if pos := cueerrors.Positions(errs[0]); len(pos) > 0 {
			le.Pos = pos[0]
		}
	}
	return le
}
