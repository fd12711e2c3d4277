package feature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const recordSchemaURL = "schema://feature-record.json"

var (
	recordSchemaOnce sync.Once
	recordSchema     *jsonschema.Schema
	recordSchemaErr  error
)

// RecordSchema returns the JSON Schema definition a wire Record must satisfy.
func RecordSchema() map[string]any {
	trendEnum := []any{"", string(TrendUnknown)}
	for _, t := range Trends() {
		trendEnum = append(trendEnum, string(t))
	}
	levelEnum := []any{}
	for _, l := range Levels() {
		levelEnum = append(levelEnum, string(l))
	}

	props := map[string]any{}
	for _, f := range allFields {
		if f.IsPivot() {
			continue
		}
		switch f.Kind() {
		case KindNumber:
			prop := map[string]any{"type": "number"}
			switch fieldSpecs[f].bound {
			case percentage:
				prop["minimum"] = 0
				prop["maximum"] = 100
			case nonNegative:
				prop["minimum"] = 0
			}
			props[string(f)] = prop
		case KindCount:
			props[string(f)] = map[string]any{"type": "integer", "minimum": 0}
		case KindTrend:
			props[string(f)] = map[string]any{"type": "string", "enum": trendEnum}
		case KindLevel:
			props[string(f)] = map[string]any{"type": "string", "enum": levelEnum}
		case KindFlag:
			props[string(f)] = map[string]any{"type": "boolean"}
		}
	}

	count := map[string]any{"type": "integer", "minimum": 0}
	props["PIVOT"] = map[string]any{
		"type": "object",
		"properties": map[string]any{
			string(BelowCount): count,
			string(OnCount):    count,
			string(AboveCount): count,
			string(ExamCount):  count,
		},
		"required": []any{string(ExamCount)},
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []any{"PIVOT"},
	}
}

func compiledRecordSchema() (*jsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		// Round-trip through JSON so the compiler sees plain JSON values.
		raw, err := json.Marshal(RecordSchema())
		if err != nil {
			recordSchemaErr = fmt.Errorf("marshal record schema: %w", err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			recordSchemaErr = fmt.Errorf("parse record schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(recordSchemaURL, doc); err != nil {
			recordSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		recordSchema, recordSchemaErr = c.Compile(recordSchemaURL)
	})
	return recordSchema, recordSchemaErr
}

// DecodeRecord validates raw JSON against RecordSchema and decodes it.
func DecodeRecord(data []byte) (Record, error) {
	sch, err := compiledRecordSchema()
	if err != nil {
		return Record{}, err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return Record{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return Record{}, fmt.Errorf("feature record does not match schema: %w", err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("decode feature record: %w", err)
	}
	return r, nil
}
