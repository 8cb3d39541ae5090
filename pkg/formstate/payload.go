package formstate

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// MethodOverrideKey carries the partial-update marker for transports without PATCH.
const MethodOverrideKey = "_method"

var ErrNotSubmittable = errors.New("view mode forms cannot be submitted")

// WirePayload is what the backend create/update endpoints accept.
type WirePayload struct {
	Values map[string]any
	Files  map[string]*FileRef
	// Method is the HTTP verb the payload stands for (POST or PATCH).
	Method string
}

// NeedsMultipart is true whenever a new file is attached.
func (p WirePayload) NeedsMultipart() bool {
	return len(p.Files) > 0
}

// MarshalJSON encodes Values only; files always travel as multipart.
func (p WirePayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Values)
}

// WriteMultipart encodes the payload as multipart/form-data. List values are
// written as repeated "key[]" parts.
func (p WirePayload) WriteMultipart(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)
	keys := make([]string, 0, len(p.Values))
	for k := range p.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writeFormValue(mw, k, p.Values[k]); err != nil {
			return "", err
		}
	}
	fileKeys := make([]string, 0, len(p.Files))
	for k := range p.Files {
		fileKeys = append(fileKeys, k)
	}
	sort.Strings(fileKeys)
	for _, k := range fileKeys {
		f := p.Files[k]
		contentType := f.ContentType
		if contentType == "" {
			contentType = mimetype.Detect(f.Data).String()
		}
		name := f.Name
		if name == "" {
			name = k + mimetype.Detect(f.Data).Extension()
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, k, name))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return "", errors.Wrapf(err, "create part %s", k)
		}
		if _, err := part.Write(f.Data); err != nil {
			return "", errors.Wrapf(err, "write part %s", k)
		}
	}
	if err := mw.Close(); err != nil {
		return "", errors.Wrap(err, "close multipart")
	}
	return mw.FormDataContentType(), nil
}

func writeFormValue(mw *multipart.Writer, key string, v any) error {
	switch t := v.(type) {
	case []string:
		for _, item := range t {
			if err := mw.WriteField(key+"[]", item); err != nil {
				return errors.Wrapf(err, "write field %s", key)
			}
		}
		return nil
	case nil:
		return mw.WriteField(key, "")
	case bool:
		// multipart backends read booleans as 1/0
		if t {
			return mw.WriteField(key, "1")
		}
		return mw.WriteField(key, "0")
	default:
		return mw.WriteField(key, stringify(t))
	}
}

// Builder reconstructs the wire payload from a FieldSet. It is the inverse of
// Projector for everything that is not display-only.
type Builder struct {
	schema *Schema
	log    logrus.FieldLogger
}

func NewBuilder(schema *Schema, log logrus.FieldLogger) *Builder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Builder{schema: schema, log: log}
}

// Build must only run after validation passed.
func (b *Builder) Build(fields FieldSet, mode Mode, aux Lookups) (WirePayload, error) {
	if !mode.Valid() {
		return WirePayload{}, errors.Wrapf(ErrInvalidMode, "%q", string(mode))
	}
	if mode == ModeView {
		return WirePayload{}, ErrNotSubmittable
	}
	p := WirePayload{
		Values: make(map[string]any, len(b.schema.Fields)+1),
		Files:  map[string]*FileRef{},
		Method: http.MethodPost,
	}
	for _, f := range b.schema.Fields {
		if f.DisplayOnly || f.Derive != nil {
			continue
		}
		key := f.wireKey()
		v, ok := fields[f.Key]
		if !ok {
			continue
		}
		switch f.Kind {
		case KindFile:
			ref, _ := v.(*FileRef)
			switch {
			case ref.IsNew():
				p.Files[key] = ref
			case ref != nil && ref.Stored != "":
				p.Values[key] = ref.Stored
			}
			continue
		case KindStringList:
			p.Values[key] = b.resolveList(f, v, aux)
			continue
		}
		if wv, ok := wireValue(f, v); ok {
			p.Values[key] = wv
		}
	}
	if mode == ModeEdit {
		p.Values[MethodOverrideKey] = http.MethodPatch
		p.Method = http.MethodPatch
	}
	return p, nil
}

// resolveList turns labels chosen in the UI into ids using the aux list.
// Labels with no match are dropped.
func (b *Builder) resolveList(f Field, v any, aux Lookups) []string {
	labels, _ := v.([]string)
	out := make([]string, 0, len(labels))
	if f.Lookup == "" {
		return append(out, labels...)
	}
	options := aux[f.Lookup]
	seen := map[string]struct{}{}
	for _, label := range labels {
		o, ok := FindByLabel(options, label)
		if !ok {
			b.log.WithField("field", f.Key).Warnf("formstate: %s: no %s entry named %q", b.schema.Name, f.Lookup, label)
			continue
		}
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o.ID)
	}
	return out
}

func wireValue(f Field, v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		if f.Kind == KindNumber {
			d, ok := toDecimal(t)
			if !ok {
				return nil, false
			}
			return json.Number(d.String()), true
		}
		return t, true
	case bool:
		return t, true
	case decimal.Decimal:
		return json.Number(t.String()), true
	case civil.Date:
		if !t.IsValid() {
			return nil, false
		}
		return t.String(), true
	case *Option:
		if t == nil || t.ID == "" {
			return nil, false
		}
		return t.ID, true
	case []Option:
		return IDs(t), true
	case int:
		return json.Number(strconv.Itoa(t)), true
	default:
		return t, true
	}
}
