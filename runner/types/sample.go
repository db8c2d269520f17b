package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SampleTimeLayout is the layout of the "time" field returned by the metrics API (UTC)
const SampleTimeLayout = "2006-01-02 15:04:05"

// Sample field names as returned by the request_ts_v1 metrics API
const (
	FieldDelayMax          = "dt_max"
	FieldDelayMin          = "dt_min"
	FieldDelayTotal        = "dt_total"
	FieldDelayN95          = "dt_n95"
	FieldDelayP70          = "dt_p70"
	FieldDelayP90          = "dt_p90"
	FieldDelayP98          = "dt_p98"
	FieldExecMax           = "et_max"
	FieldExecMin           = "et_min"
	FieldExecTotal         = "et_total"
	FieldExecN95           = "et_n95"
	FieldExecP70           = "et_p70"
	FieldExecP90           = "et_p90"
	FieldExecP98           = "et_p98"
	FieldRetried           = "retried"
	FieldRequests          = "requests"
	FieldCompletedRequests = "completed_requests"
	FieldFailedRequests    = "failed_requests"
	FieldTime              = "time"
)

// Fields is the fixed output order of sample fields. FieldTime is last.
var Fields = []string{
	FieldDelayMax,
	FieldDelayMin,
	FieldDelayTotal,
	FieldDelayN95,
	FieldDelayP70,
	FieldDelayP90,
	FieldDelayP98,
	FieldExecMax,
	FieldExecMin,
	FieldExecTotal,
	FieldExecN95,
	FieldExecP70,
	FieldExecP90,
	FieldExecP98,
	FieldRetried,
	FieldRequests,
	FieldCompletedRequests,
	FieldFailedRequests,
	FieldTime,
}

// Sample is one data point of the request_ts_v1 series.
// Numeric values keep the literal the API sent.
type Sample struct {
	Values map[string]json.Number
	Time   string
}

// UnmarshalJSON decodes a sample keeping numbers as json.Number.
// Unknown keys are ignored; values of unexpected type are treated as absent.
func (s *Sample) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	s.Values = make(map[string]json.Number, len(raw))
	s.Time = ""
	for key, value := range raw {
		switch v := value.(type) {
		case json.Number:
			s.Values[key] = v
		case string:
			if key == FieldTime {
				s.Time = v
			}
		}
	}

	return nil
}

// Timestamp parses the sample time as UTC
func (s *Sample) Timestamp() (time.Time, error) {
	if s.Time == "" {
		return time.Time{}, fmt.Errorf("sample has no %s field", FieldTime)
	}
	ts, err := time.ParseInLocation(SampleTimeLayout, s.Time, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid sample time %q: %w", s.Time, err)
	}
	return ts, nil
}

// Validate checks that every field in Fields is present
func (s *Sample) Validate() error {
	var missing []string
	for _, field := range Fields {
		if field == FieldTime {
			continue
		}
		if _, ok := s.Values[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("sample is missing fields: %s", strings.Join(missing, ", "))
	}

	_, err := s.Timestamp()
	return err
}

// MetricsResponse is the body of a successful metrics API call
type MetricsResponse struct {
	Data []Sample `json:"data"`
}

// Latest returns the most recent sample, which the API puts last
func (r *MetricsResponse) Latest() (*Sample, bool) {
	if len(r.Data) == 0 {
		return nil, false
	}
	return &r.Data[len(r.Data)-1], true
}
