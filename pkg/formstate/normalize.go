package formstate

import (
	"bytes"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var ErrMalformedRecord = errors.New("malformed entity payload")

// Alias maps the alternative locations a logical field has been seen at onto
// its canonical path. Paths use gjson/sjson dot syntax.
type Alias struct {
	Canonical string
	Sources   []string
}

// Normalizer is the single boundary adapter that turns every known payload
// shape into the canonical EntityRecord shape.
type Normalizer struct {
	envelopes []string
	aliases   []Alias
}

// NewNormalizer unwraps the usual {"data": {...}} envelope (an object without
// its own "id") before applying aliases.
func NewNormalizer(aliases ...Alias) *Normalizer {
	return &Normalizer{envelopes: []string{"data"}, aliases: aliases}
}

// Normalize decodes raw into a canonical record. Numbers stay json.Number so
// ids and amounts survive unchanged.
func (n *Normalizer) Normalize(raw []byte) (EntityRecord, error) {
	raw = bytes.TrimSpace(raw)
	if !gjson.ValidBytes(raw) {
		return nil, errors.Wrap(ErrMalformedRecord, "invalid json")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, errors.Wrap(ErrMalformedRecord, "not an object")
	}
	for _, env := range n.envelopes {
		inner := doc.Get(env)
		if inner.IsObject() && !doc.Get("id").Exists() {
			raw = []byte(inner.Raw)
			break
		}
	}

	var err error
	for _, a := range n.aliases {
		if v := gjson.GetBytes(raw, a.Canonical); v.Exists() && v.Type != gjson.Null {
			continue
		}
		for _, src := range a.Sources {
			v := gjson.GetBytes(raw, src)
			if !v.Exists() || v.Type == gjson.Null {
				continue
			}
			raw, err = sjson.SetRawBytes(raw, a.Canonical, []byte(v.Raw))
			if err != nil {
				return nil, errors.Wrapf(err, "set %s", a.Canonical)
			}
			break
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, errors.Wrap(ErrMalformedRecord, err.Error())
	}
	return EntityRecord(out), nil
}
