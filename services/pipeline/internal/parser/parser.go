package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"jobclean/services/pipeline/internal/errors"
	"jobclean/services/pipeline/internal/frame"
)

const utf8BOM = "\ufeff"

type Options struct {
	// NullValues are the raw field values read as null. Defaults to the empty field.
	NullValues []string
	Comma      rune
}

func DefaultOptions() Options {
	return Options{
		NullValues: []string{""},
		Comma:      ',',
	}
}

// ParseDataset reads CSV text with a header line into a frame, inferring one
// kind per column from its non-null values.
func ParseDataset(body []byte, opts Options) (*frame.Frame, error) {
	if opts.Comma == 0 {
		opts.Comma = ','
	}
	if opts.NullValues == nil {
		opts.NullValues = DefaultOptions().NullValues
	}

	body = bytes.TrimPrefix(body, []byte(utf8BOM))
	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = opts.Comma

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.InvalidInput("dataset is empty", nil)
	}
	if err != nil {
		return nil, errors.InvalidInput("reading header", err)
	}
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}

	raw, err := r.ReadAll()
	if err != nil {
		return nil, errors.InvalidInput("reading records", err)
	}

	nulls := make(map[string]bool, len(opts.NullValues))
	for _, v := range opts.NullValues {
		nulls[v] = true
	}

	schema := make([]frame.Column, len(header))
	for c, name := range header {
		schema[c] = frame.Column{Name: name, Kind: inferKind(raw, c, nulls)}
	}

	rows := make([][]any, len(raw))
	for r, rec := range raw {
		row := make([]any, len(rec))
		for c, field := range rec {
			if nulls[field] {
				continue
			}
			v, err := convert(field, schema[c].Kind)
			if err != nil {
				return nil, errors.InvalidInput(fmt.Sprintf("record %d column %q", r+1, schema[c].Name), err)
			}
			row[c] = v
		}
		rows[r] = row
	}

	return frame.New(schema, rows)
}

func inferKind(raw [][]string, col int, nulls map[string]bool) frame.Kind {
	isInt, isFloat, isBool := true, true, true
	seen := false

	for _, rec := range raw {
		field := rec[col]
		if nulls[field] {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(field, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(field, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			isBool = strings.EqualFold(field, "true") || strings.EqualFold(field, "false")
		}
		if !isInt && !isFloat && !isBool {
			break
		}
	}

	switch {
	case !seen:
		return frame.String
	case isInt:
		return frame.Int
	case isFloat:
		return frame.Float
	case isBool:
		return frame.Bool
	default:
		return frame.String
	}
}

func convert(field string, kind frame.Kind) (any, error) {
	switch kind {
	case frame.Int:
		return strconv.ParseInt(field, 10, 64)
	case frame.Float:
		return strconv.ParseFloat(field, 64)
	case frame.Bool:
		return strings.EqualFold(field, "true"), nil
	default:
		return field, nil
	}
}
