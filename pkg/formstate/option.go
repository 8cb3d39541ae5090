package formstate

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Option is a selectable lookup value (position, job level, tool, user...).
// Attrs keeps the original fields of the lookup row.
type Option struct {
	ID    string
	Label string
	Attrs map[string]any
}

func (o Option) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(o.Attrs)+2)
	for k, v := range o.Attrs {
		out[k] = v
	}
	out["id"] = o.ID
	out["label"] = o.Label
	return json.Marshal(out)
}

func (o *Option) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	o.ID = IDString(raw["id"])
	o.Label, _ = raw["label"].(string)
	delete(raw, "id")
	delete(raw, "label")
	if len(raw) > 0 {
		o.Attrs = raw
	} else {
		o.Attrs = nil
	}
	return nil
}

// OptionSource mirrors the states of an asynchronous lookup query.
// A source that is loading or failed is "not loaded".
type OptionSource struct {
	Items   []Option
	Loading bool
	Err     error
}

// Loaded returns a ready source for items.
func Loaded(items []Option) OptionSource {
	return OptionSource{Items: items}
}

// Pending returns a source whose query has not completed yet.
func Pending() OptionSource {
	return OptionSource{Loading: true}
}

func (s OptionSource) Ready() bool {
	return !s.Loading && s.Err == nil
}

// Merge reconciles a loaded lookup list with the option embedded in the entity
// payload so that a recorded value stays visible and selectable.
func Merge(src OptionSource, embedded *Option, mode Mode) []Option {
	if embedded != nil && embedded.ID == "" {
		embedded = nil
	}
	switch mode {
	case ModeView:
		if embedded != nil {
			return []Option{*embedded}
		}
		if !src.Ready() {
			return []Option{}
		}
		return dedupe(src.Items)
	case ModeEdit:
		if !src.Ready() {
			if embedded != nil {
				return []Option{*embedded}
			}
			return []Option{}
		}
		items := dedupe(src.Items)
		if embedded == nil || ContainsID(items, embedded.ID) {
			return items
		}
		out := make([]Option, 0, len(items)+1)
		out = append(out, *embedded)
		return append(out, items...)
	default:
		if !src.Ready() {
			return []Option{}
		}
		return dedupe(src.Items)
	}
}

// MergeLists folds already-known options into a freshly loaded list: entries of
// initial missing from existing come first (in their order), then existing.
func MergeLists(existing, initial []Option) []Option {
	if len(initial) == 0 {
		return existing
	}
	if len(existing) == 0 {
		return initial
	}
	seen := make(map[string]struct{}, len(existing))
	for _, o := range existing {
		seen[o.ID] = struct{}{}
	}
	out := make([]Option, 0, len(existing)+len(initial))
	for _, o := range initial {
		if _, ok := seen[o.ID]; ok {
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}
	return append(out, existing...)
}

// ContainsID reports whether id is present in options.
func ContainsID(options []Option, id string) bool {
	for _, o := range options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// FindByLabel is a case-sensitive exact match on Label.
func FindByLabel(options []Option, label string) (Option, bool) {
	if label == "" {
		return Option{}, false
	}
	for _, o := range options {
		if o.Label == label {
			return o, true
		}
	}
	return Option{}, false
}

// FindByID returns the option with the given id.
func FindByID(options []Option, id string) (Option, bool) {
	if id == "" {
		return Option{}, false
	}
	for _, o := range options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// IDs returns the ids of options in order.
func IDs(options []Option) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.ID
	}
	return out
}

// Filter ranks options by a fuzzy, case-insensitive match of query on Label.
// An empty query returns options unchanged.
func Filter(options []Option, query string) []Option {
	query = strings.TrimSpace(query)
	if query == "" || len(options) == 0 {
		return options
	}
	labels := make([]string, len(options))
	for i, o := range options {
		labels[i] = o.Label
	}
	ranks := fuzzy.RankFindNormalizedFold(query, labels)
	sort.Stable(ranks)
	out := make([]Option, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, options[r.OriginalIndex])
	}
	return out
}

func dedupe(items []Option) []Option {
	if len(items) == 0 {
		return []Option{}
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]Option, 0, len(items))
	for _, o := range items {
		if _, ok := seen[o.ID]; ok {
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}
	return out
}

// OptionsFromRows turns backend lookup rows into options. labelKey picks the
// label column; when empty (or blank on a row) the usual name keys are tried.
// Rows without an id are skipped and duplicate ids keep their first row.
func OptionsFromRows(rows []map[string]any, labelKey string) []Option {
	out := make([]Option, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		id := IDString(row["id"])
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		label := ""
		if labelKey != "" {
			label = stringify(row[labelKey])
		}
		if label == "" {
			label = labelOf(row)
		}
		attrs := make(map[string]any, len(row))
		for k, v := range row {
			if k == "id" || k == "label" {
				continue
			}
			attrs[k] = v
		}
		if len(attrs) == 0 {
			attrs = nil
		}
		out = append(out, Option{ID: id, Label: label, Attrs: attrs})
	}
	return out
}
