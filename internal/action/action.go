package action

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies one action variant in the planner's vocabulary.
type Kind string

const (
	KindReadRange    Kind = "readRange"
	KindFilter       Kind = "filter"
	KindSort         Kind = "sort"
	KindHighlight    Kind = "highlight"
	KindSetValue     Kind = "setValue"
	KindSetValues    Kind = "setValues"
	KindAutoFillDown Kind = "autoFillDown"
	KindSetFormula   Kind = "setFormula"
	KindInsertColumn Kind = "insertColumn"
	KindFormatRange  Kind = "formatRange"
	KindCreateSheet  Kind = "createSheet"
)

// Action is the closed vocabulary of declarative document operations.
// The wire shape is {"action": "<kind>", ...} and must stay byte-compatible
// with the existing bridge executor, so each variant carries the planner's
// original field names in its JSON tags.
type Action interface {
	Kind() Kind
	// Mutates reports whether applying the action changes document state
	// (structural or cell writes; presentation-only actions return false).
	Mutates() bool
	validate() error
}

type ReadRange struct {
	Sheet string `json:"sheet"`
	Range string `json:"range"`
}

type Filter struct {
	Column   string `json:"column"`
	Criteria string `json:"criteria"`
}

type Sort struct {
	Column    string `json:"column"`
	Ascending bool   `json:"ascending"`
}

type Highlight struct {
	Range string `json:"range"`
	Color string `json:"color"`
}

type SetValue struct {
	Sheet string `json:"sheet"`
	Cell  string `json:"cell"`
	Value any    `json:"value"`
}

type SetValues struct {
	Sheet  string  `json:"sheet"`
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
}

type AutoFillDown struct {
	Sheet      string `json:"sheet"`
	SourceCell string `json:"sourceCell"`
	LastRow    int    `json:"lastRow"`
}

type SetFormula struct {
	Sheet    string `json:"sheet"`
	Cell     string `json:"cell"`
	Formula  string `json:"formula"`
	FillDown bool   `json:"fillDown,omitempty"`
}

type InsertColumn struct {
	After  string `json:"after"`
	Header string `json:"header"`
}

type FormatRange struct {
	Sheet      string `json:"sheet"`
	Range      string `json:"range"`
	Bold       bool   `json:"bold,omitempty"`
	Background string `json:"background,omitempty"`
	FontColor  string `json:"fontColor,omitempty"`
}

type CreateSheet struct {
	Name string `json:"name"`
}

func (ReadRange) Kind() Kind    { return KindReadRange }
func (Filter) Kind() Kind       { return KindFilter }
func (Sort) Kind() Kind         { return KindSort }
func (Highlight) Kind() Kind    { return KindHighlight }
func (SetValue) Kind() Kind     { return KindSetValue }
func (SetValues) Kind() Kind    { return KindSetValues }
func (AutoFillDown) Kind() Kind { return KindAutoFillDown }
func (SetFormula) Kind() Kind   { return KindSetFormula }
func (InsertColumn) Kind() Kind { return KindInsertColumn }
func (FormatRange) Kind() Kind  { return KindFormatRange }
func (CreateSheet) Kind() Kind  { return KindCreateSheet }

func (ReadRange) Mutates() bool    { return false }
func (Filter) Mutates() bool       { return false }
func (Sort) Mutates() bool         { return false }
func (Highlight) Mutates() bool    { return false }
func (SetValue) Mutates() bool     { return true }
func (SetValues) Mutates() bool    { return true }
func (AutoFillDown) Mutates() bool { return true }
func (SetFormula) Mutates() bool   { return true }
func (InsertColumn) Mutates() bool { return true }
func (FormatRange) Mutates() bool  { return true }
func (CreateSheet) Mutates() bool  { return true }

func missing(kind Kind, field string) error {
	return fmt.Errorf("action %q: missing required field %q", kind, field)
}

func (a ReadRange) validate() error {
	if a.Sheet == "" {
		return missing(KindReadRange, "sheet")
	}
	if a.Range == "" {
		return missing(KindReadRange, "range")
	}
	return nil
}

func (a Filter) validate() error {
	if a.Column == "" {
		return missing(KindFilter, "column")
	}
	if a.Criteria == "" {
		return missing(KindFilter, "criteria")
	}
	return nil
}

func (a Sort) validate() error {
	if a.Column == "" {
		return missing(KindSort, "column")
	}
	return nil
}

func (a Highlight) validate() error {
	if a.Range == "" {
		return missing(KindHighlight, "range")
	}
	return nil
}

func (a SetValue) validate() error {
	if a.Sheet == "" {
		return missing(KindSetValue, "sheet")
	}
	if a.Cell == "" {
		return missing(KindSetValue, "cell")
	}
	if a.Value == nil {
		return missing(KindSetValue, "value")
	}
	return nil
}

func (a SetValues) validate() error {
	if a.Sheet == "" {
		return missing(KindSetValues, "sheet")
	}
	if a.Range == "" {
		return missing(KindSetValues, "range")
	}
	if len(a.Values) == 0 {
		return missing(KindSetValues, "values")
	}
	return nil
}

func (a AutoFillDown) validate() error {
	if a.Sheet == "" {
		return missing(KindAutoFillDown, "sheet")
	}
	if a.SourceCell == "" {
		return missing(KindAutoFillDown, "sourceCell")
	}
	if a.LastRow <= 0 {
		return missing(KindAutoFillDown, "lastRow")
	}
	return nil
}

func (a SetFormula) validate() error {
	if a.Sheet == "" {
		return missing(KindSetFormula, "sheet")
	}
	if a.Cell == "" {
		return missing(KindSetFormula, "cell")
	}
	if a.Formula == "" {
		return missing(KindSetFormula, "formula")
	}
	return nil
}

func (a InsertColumn) validate() error {
	if a.After == "" {
		return missing(KindInsertColumn, "after")
	}
	if a.Header == "" {
		return missing(KindInsertColumn, "header")
	}
	return nil
}

func (a FormatRange) validate() error {
	if a.Sheet == "" {
		return missing(KindFormatRange, "sheet")
	}
	if a.Range == "" {
		return missing(KindFormatRange, "range")
	}
	return nil
}

func (a CreateSheet) validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return missing(KindCreateSheet, "name")
	}
	return nil
}

var cellRefPattern = regexp.MustCompile(`^\$?([A-Z]{1,3})\$?(\d+)$`)

// FillRange returns the cell range the fill actually writes: the column of
// the source cell from the row below it down to LastRow. The source cell
// itself already held the formula, so it is not part of the fill.
func (a AutoFillDown) FillRange() (string, bool) {
	m := cellRefPattern.FindStringSubmatch(strings.ToUpper(a.SourceCell))
	if m == nil {
		return "", false
	}
	row, err := strconv.Atoi(m[2])
	if err != nil || a.LastRow <= row {
		return "", false
	}
	return fmt.Sprintf("%s%d:%s%d", m[1], row+1, m[1], a.LastRow), true
}

// Decode parses one planner-emitted action object, rejecting unknown kinds
// and any object missing a field its kind requires.
func Decode(data []byte) (Action, error) {
	var probe struct {
		Kind Kind `json:"action"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}

	decodeAs := func(a Action) (Action, error) {
		if err := json.Unmarshal(data, a); err != nil {
			return nil, fmt.Errorf("decode %q action: %w", probe.Kind, err)
		}
		return a, nil
	}

	var (
		a   Action
		err error
	)
	switch probe.Kind {
	case KindReadRange:
		a, err = decodeAs(&ReadRange{})
	case KindFilter:
		a, err = decodeAs(&Filter{})
	case KindSort:
		a, err = decodeAs(&Sort{})
	case KindHighlight:
		a, err = decodeAs(&Highlight{})
	case KindSetValue:
		a, err = decodeAs(&SetValue{})
	case KindSetValues:
		a, err = decodeAs(&SetValues{})
	case KindAutoFillDown:
		a, err = decodeAs(&AutoFillDown{})
	case KindSetFormula:
		a, err = decodeAs(&SetFormula{})
	case KindInsertColumn:
		a, err = decodeAs(&InsertColumn{})
	case KindFormatRange:
		a, err = decodeAs(&FormatRange{})
	case KindCreateSheet:
		a, err = decodeAs(&CreateSheet{})
	case "":
		return nil, fmt.Errorf("decode action: missing \"action\" field")
	default:
		return nil, fmt.Errorf("decode action: unknown kind %q", probe.Kind)
	}
	if err != nil {
		return nil, err
	}
	a = deref(a)
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// deref converts the pointer used during unmarshalling into the value
// variant, so callers can type-switch on value types.
func deref(a Action) Action {
	switch v := a.(type) {
	case *ReadRange:
		return *v
	case *Filter:
		return *v
	case *Sort:
		return *v
	case *Highlight:
		return *v
	case *SetValue:
		return *v
	case *SetValues:
		return *v
	case *AutoFillDown:
		return *v
	case *SetFormula:
		return *v
	case *InsertColumn:
		return *v
	case *FormatRange:
		return *v
	case *CreateSheet:
		return *v
	}
	return a
}

// Encode renders the action back to its planner wire shape.
func Encode(a Action) ([]byte, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	// Splice the kind tag into the variant's own fields.
	tagged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &tagged); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(a.Kind())
	tagged["action"] = kind
	return json.Marshal(tagged)
}

// Validate re-checks a constructed action, for callers building actions
// directly rather than decoding them.
func Validate(a Action) error {
	if a == nil {
		return fmt.Errorf("nil action")
	}
	return deref(a).validate()
}
