// File: internal/executor/values.go
package executor

import "github.com/xkilldash9x/replay-cli/api/schemas"

// resolveValue picks the value an input/enter step should type, in strict
// precedence order: explicitly injected, CSV by exact step label, CSV routed
// through the field-mapping table, and finally the originally recorded
// value. The chosen source is reported for auditability.
func resolveValue(step schemas.Step, ec Context) (string, schemas.ValueSource) {
	if ec.InjectedValue != nil {
		return *ec.InjectedValue, schemas.ValueInjected
	}

	if ec.CSVValues != nil && step.Label != "" {
		if v, ok := ec.CSVValues[step.Label]; ok {
			return v, schemas.ValueCSVDirect
		}
		// Mapping table routes csvColumn -> stepLabel; find a column whose
		// mapped label names this step and whose row has a value.
		for column, label := range ec.FieldMappings {
			if label != step.Label {
				continue
			}
			if v, ok := ec.CSVValues[column]; ok {
				return v, schemas.ValueCSVMapped
			}
		}
	}

	return step.Value, schemas.ValueRecorded
}
