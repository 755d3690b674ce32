// File: internal/data/data.go
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadSteps decodes a recorded step list (the recording pipeline's JSON
// output) from a file.
func LoadSteps(path string) ([]schemas.Step, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open steps file: %w", err)
	}
	defer f.Close()
	return DecodeSteps(f)
}

// DecodeSteps decodes a step list from a stream.
func DecodeSteps(r io.Reader) ([]schemas.Step, error) {
	var steps []schemas.Step
	if err := json.NewDecoder(r).Decode(&steps); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	return steps, nil
}

// LoadRows reads a CSV file into row dictionaries. The first record is the
// header; every following record becomes one Row keyed by column name.
// Short records leave their trailing columns absent rather than empty.
func LoadRows(path string) ([]schemas.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()
	return DecodeRows(f)
}

// DecodeRows reads CSV rows from a stream.
func DecodeRows(r io.Reader) ([]schemas.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var rows []schemas.Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record %d: %w", len(rows)+2, err)
		}
		row := make(schemas.Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadMappings reads the csvColumn -> stepLabel table from a YAML file with
// a top-level `mappings:` map. Column names are matched against CSV headers
// verbatim, so key casing must survive the decode.
func LoadMappings(path string) (schemas.FieldMappings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file: %w", err)
	}
	var doc struct {
		Mappings map[string]string `yaml:"mappings"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode mapping file: %w", err)
	}
	if len(doc.Mappings) == 0 {
		return nil, nil
	}
	return schemas.FieldMappings(doc.Mappings), nil
}
