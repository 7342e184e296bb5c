// Package metrics emits CloudWatch metrics in Embedded Metric Format: each
// Flush writes one JSON document to stdout and CloudWatch Logs lifts the
// embedded values into real metrics, so the request path never makes a
// PutMetricData call.
//
// See https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultNamespace is the CloudWatch namespace shared by all binaries.
const DefaultNamespace = "BabyGenerator"

// CloudWatch metric units used by this codebase.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

type dimension struct{ key, value string }

type measurement struct {
	name  string
	unit  string
	value float64
}

type property struct {
	key   string
	value interface{}
}

// Recorder accumulates the contents of one EMF document. Entries keep their
// registration order so the emitted JSON is stable from run to run; recording
// a name twice replaces the earlier entry. Not safe for concurrent use, make
// one per request or pipeline run.
type Recorder struct {
	namespace    string
	out          io.Writer
	dimensions   []dimension
	measurements []measurement
	properties   []property
}

// New creates a Recorder for the given CloudWatch namespace. On Lambda the
// FunctionName dimension is attached automatically.
func New(namespace string) *Recorder {
	r := &Recorder{namespace: namespace, out: os.Stdout}
	if fn := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); fn != "" {
		r.Dimension("FunctionName", fn)
	}
	return r
}

// Dimension adds a dimension. Dimensions are indexed by CloudWatch and
// appear as filterable attributes on every metric in the document.
func (r *Recorder) Dimension(key, value string) *Recorder {
	for i := range r.dimensions {
		if r.dimensions[i].key == key {
			r.dimensions[i].value = value
			return r
		}
	}
	r.dimensions = append(r.dimensions, dimension{key: key, value: value})
	return r
}

// Metric records a named value with one of the Unit* constants.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	for i := range r.measurements {
		if r.measurements[i].name == name {
			r.measurements[i] = measurement{name: name, unit: unit, value: value}
			return r
		}
	}
	r.measurements = append(r.measurements, measurement{name: name, unit: unit, value: value})
	return r
}

// Count records a count metric with value 1.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Timing records the milliseconds elapsed since start under the given name.
func (r *Recorder) Timing(name string, start time.Time) *Recorder {
	return r.Metric(name, float64(time.Since(start).Milliseconds()), UnitMilliseconds)
}

// Property attaches a non-metric field. Properties are searchable in
// CloudWatch Logs Insights but create no metric, so they cost nothing
// beyond log ingestion.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	for i := range r.properties {
		if r.properties[i].key == key {
			r.properties[i].value = value
			return r
		}
	}
	r.properties = append(r.properties, property{key: key, value: value})
	return r
}

// The _aws envelope CloudWatch scans log lines for. Field names are fixed
// by the EMF specification.
type emfEnvelope struct {
	Timestamp         int64       `json:"Timestamp"`
	CloudWatchMetrics []metricSet `json:"CloudWatchMetrics"`
}

type metricSet struct {
	Namespace  string       `json:"Namespace"`
	Dimensions [][]string   `json:"Dimensions"`
	Metrics    []metricMeta `json:"Metrics"`
}

type metricMeta struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

// Flush writes the document as a single JSON line and is a no-op when no
// metric was recorded. The Recorder must not be reused afterwards.
func (r *Recorder) Flush() {
	if len(r.measurements) == 0 {
		return
	}

	dimKeys := make([]string, len(r.dimensions))
	meta := make([]metricMeta, len(r.measurements))
	doc := make(map[string]interface{}, len(r.dimensions)+len(r.measurements)+len(r.properties)+1)

	for i, d := range r.dimensions {
		dimKeys[i] = d.key
		doc[d.key] = d.value
	}
	for i, m := range r.measurements {
		meta[i] = metricMeta{Name: m.name, Unit: m.unit}
		doc[m.name] = m.value
	}
	for _, p := range r.properties {
		doc[p.key] = p.value
	}
	doc["_aws"] = emfEnvelope{
		Timestamp: time.Now().UnixMilli(),
		CloudWatchMetrics: []metricSet{{
			Namespace:  r.namespace,
			Dimensions: [][]string{dimKeys},
			Metrics:    meta,
		}},
	}

	line, err := json.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "metrics: dropping EMF document: %v\n", err)
		return
	}
	fmt.Fprintln(r.out, string(line))
}
