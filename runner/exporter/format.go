package exporter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/runpod-serverless-metrics/runner/types"
)

// LabelEndpoint is the label carrying the configured endpoint name
const LabelEndpoint = "endpoint"

var labelValueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// EscapeLabelValue escapes a label value for the text exposition format
func EscapeLabelValue(v string) string {
	return labelValueEscaper.Replace(v)
}

// MetricName returns the exposition name for a sample field
func MetricName(prefix, field string) string {
	return prefix + "_" + field
}

// FormatSample renders one line per field of types.Fields, in order:
//
//	<prefix>_<field>{endpoint="<name>"} <value>
//
// Numeric values are written exactly as the API sent them. The time field is
// written as Unix seconds.
func FormatSample(prefix, endpointName string, sample *types.Sample) (string, error) {
	label := fmt.Sprintf(`{%s="%s"} `, LabelEndpoint, EscapeLabelValue(endpointName))

	var b strings.Builder
	for _, field := range types.Fields {
		var value string
		if field == types.FieldTime {
			ts, err := sample.Timestamp()
			if err != nil {
				return "", err
			}
			value = strconv.FormatInt(ts.Unix(), 10)
		} else {
			n, ok := sample.Values[field]
			if !ok {
				return "", fmt.Errorf("sample is missing field %s", field)
			}
			if _, err := n.Float64(); err != nil {
				return "", fmt.Errorf("field %s is not numeric: %w", field, err)
			}
			value = n.String()
		}

		b.WriteString(MetricName(prefix, field))
		b.WriteString(label)
		b.WriteString(value)
		b.WriteByte('\n')
	}

	return b.String(), nil
}
