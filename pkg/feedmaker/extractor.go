package feedmaker

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Delimited values longer than this are treated as a mismatch rather than a value
const MaxFieldLength = 40

// FieldExtractor pulls one value for a record out of a page. The variants are FixedInt,
// FixedString, DelimitedInt, DelimitedFloat, DelimitedString and Calc.
type FieldExtractor interface {
	// extract returns the value found for the record starting at recordStart, ok is false when
	// the field should be left out of the record
	extract(page string, recordStart int, record Record) (value any, ok bool)
}

type FixedInt struct {
	Value int64
}

func (f FixedInt) extract(string, int, Record) (any, bool) {
	return f.Value, true
}

type FixedString struct {
	Value string
}

func (f FixedString) extract(string, int, Record) (any, bool) {
	return f.Value, true
}

type DelimitedInt struct {
	Start string
	End   string
}

func (f DelimitedInt) extract(page string, recordStart int, _ Record) (any, bool) {
	text, ok := delimited(page, recordStart, f.Start, f.End)
	if !ok {
		return nil, false
	}

	value, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, false
	}
	return value, true
}

type DelimitedFloat struct {
	Start string
	End   string
}

func (f DelimitedFloat) extract(page string, recordStart int, _ Record) (any, bool) {
	text, ok := delimited(page, recordStart, f.Start, f.End)
	if !ok {
		return nil, false
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, false
	}
	return value, true
}

type DelimitedString struct {
	Start string
	End   string
}

func (f DelimitedString) extract(page string, recordStart int, _ Record) (any, bool) {
	return delimited(page, recordStart, f.Start, f.End)
}

type CalcOp string

const (
	CalcPlus  CalcOp = "plus"
	CalcMinus CalcOp = "minus"
)

// Calc combines two integer fields already present in the record
type Calc struct {
	Op    CalcOp
	Left  string
	Right string
}

func (f Calc) extract(_ string, _ int, record Record) (any, bool) {
	left, ok := record[f.Left].(int64)
	if !ok {
		return nil, false
	}
	right, ok := record[f.Right].(int64)
	if !ok {
		return nil, false
	}

	switch f.Op {
	case CalcPlus:
		return left + right, true
	case CalcMinus:
		return left - right, true
	default:
		return nil, false
	}
}

// delimited finds the text between the first start marker after recordStart and the end marker following it
func delimited(page string, recordStart int, start string, end string) (string, bool) {
	fieldStart := strings.Index(page[recordStart:], start)
	if fieldStart < 0 {
		return "", false
	}
	fieldStart += recordStart + len(start)

	fieldLength := strings.Index(page[fieldStart:], end)
	if fieldLength < 0 {
		return "", false
	}

	text := page[fieldStart : fieldStart+fieldLength]
	if utf8.RuneCountInString(text) > MaxFieldLength {
		return "", false
	}

	return text, true
}

// FieldTemplate names the record key an extractor fills
type FieldTemplate struct {
	Name      string
	Extractor FieldExtractor
}

type fieldTemplateYAML struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	String string `yaml:"string"`
	Int    int64  `yaml:"int"`
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
	Left   string `yaml:"left"`
	Right  string `yaml:"right"`
}

func (t *FieldTemplate) UnmarshalYAML(value *yaml.Node) error {
	var raw fieldTemplateYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.Name == "" {
		return fmt.Errorf("line %d: field has no name", value.Line)
	}

	var extractor FieldExtractor

	switch raw.Type {
	case "fixed_int":
		extractor = FixedInt{Value: raw.Int}
	case "fixed_string":
		extractor = FixedString{Value: raw.String}
	case "int", "float", "string":
		if raw.Start == "" || raw.End == "" {
			return fmt.Errorf("line %d: field %q needs start and end markers", value.Line, raw.Name)
		}

		switch raw.Type {
		case "int":
			extractor = DelimitedInt{Start: raw.Start, End: raw.End}
		case "float":
			extractor = DelimitedFloat{Start: raw.Start, End: raw.End}
		default:
			extractor = DelimitedString{Start: raw.Start, End: raw.End}
		}
	case "calc_plus", "calc_minus":
		if raw.Left == "" || raw.Right == "" {
			return fmt.Errorf("line %d: field %q needs left and right fields", value.Line, raw.Name)
		}

		op := CalcPlus
		if raw.Type == "calc_minus" {
			op = CalcMinus
		}
		extractor = Calc{Op: op, Left: raw.Left, Right: raw.Right}
	default:
		return fmt.Errorf("line %d: field %q has unknown type %q", value.Line, raw.Name, raw.Type)
	}

	t.Name = raw.Name
	t.Extractor = extractor

	return nil
}
