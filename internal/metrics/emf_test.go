package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

// flushToDoc redirects the recorder at a buffer, flushes, and decodes the
// emitted line.
func flushToDoc(t *testing.T, r *Recorder) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	r.out = &buf
	r.Flush()
	if buf.Len() == 0 {
		t.Fatal("expected an EMF document, got no output")
	}
	if n := bytes.Count(buf.Bytes(), []byte("\n")); n != 1 {
		t.Fatalf("EMF document must be a single line, got %d newlines: %s", n, buf.String())
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("EMF output is not valid JSON: %v\nOutput: %s", err, buf.String())
	}
	return doc
}

// envelope digs the first CloudWatchMetrics entry out of a decoded document.
func envelope(t *testing.T, doc map[string]interface{}) map[string]interface{} {
	t.Helper()
	aws, ok := doc["_aws"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing _aws envelope: %v", doc)
	}
	if _, ok := aws["Timestamp"]; !ok {
		t.Error("missing Timestamp in _aws envelope")
	}
	sets, ok := aws["CloudWatchMetrics"].([]interface{})
	if !ok || len(sets) == 0 {
		t.Fatalf("missing CloudWatchMetrics: %v", aws)
	}
	set, ok := sets[0].(map[string]interface{})
	if !ok {
		t.Fatalf("CloudWatchMetrics[0] is not an object: %v", sets[0])
	}
	return set
}

func TestFlush_DocumentShape(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")

	rec := New(DefaultNamespace).
		Dimension("Operation", "generate").
		Metric("RunDurationMs", 8421, UnitMilliseconds).
		Count("RunSuccess").
		Property("runId", "run-abc123")

	doc := flushToDoc(t, rec)
	set := envelope(t, doc)

	if set["Namespace"] != DefaultNamespace {
		t.Errorf("expected namespace %s, got %v", DefaultNamespace, set["Namespace"])
	}

	dims, _ := set["Dimensions"].([]interface{})
	if len(dims) != 1 {
		t.Fatalf("expected one dimension set, got %v", set["Dimensions"])
	}
	keys, _ := dims[0].([]interface{})
	if len(keys) != 1 || keys[0] != "Operation" {
		t.Errorf("expected dimension keys [Operation], got %v", keys)
	}

	if doc["Operation"] != "generate" {
		t.Errorf("expected Operation=generate, got %v", doc["Operation"])
	}
	if doc["RunDurationMs"] != 8421.0 {
		t.Errorf("expected RunDurationMs=8421, got %v", doc["RunDurationMs"])
	}
	if doc["RunSuccess"] != 1.0 {
		t.Errorf("expected RunSuccess=1, got %v", doc["RunSuccess"])
	}
	if doc["runId"] != "run-abc123" {
		t.Errorf("expected runId=run-abc123, got %v", doc["runId"])
	}
}

func TestFlush_MetricMetaKeepsOrderAndUnits(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")

	rec := New(DefaultNamespace).
		Metric("PayloadBytes", 2048, UnitBytes).
		Count("Requests")

	set := envelope(t, flushToDoc(t, rec))
	metas, _ := set["Metrics"].([]interface{})
	if len(metas) != 2 {
		t.Fatalf("expected two metric definitions, got %v", set["Metrics"])
	}
	first, _ := metas[0].(map[string]interface{})
	if first["Name"] != "PayloadBytes" || first["Unit"] != UnitBytes {
		t.Errorf("unexpected first definition: %v", first)
	}
	second, _ := metas[1].(map[string]interface{})
	if second["Name"] != "Requests" || second["Unit"] != UnitCount {
		t.Errorf("unexpected second definition: %v", second)
	}
}

func TestFlush_WithoutMetricsEmitsNothing(t *testing.T) {
	var buf bytes.Buffer
	rec := New(DefaultNamespace)
	rec.out = &buf
	rec.Dimension("Operation", "generate")
	rec.Property("runId", "run-1")
	rec.Flush()

	if buf.Len() != 0 {
		t.Errorf("expected no output without metrics, got: %s", buf.String())
	}
}

func TestNew_LambdaFunctionNameDimension(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "baby-lambda-prod")

	rec := New(DefaultNamespace).Count("ColdStart")
	doc := flushToDoc(t, rec)

	if doc["FunctionName"] != "baby-lambda-prod" {
		t.Errorf("expected FunctionName dimension, got %v", doc["FunctionName"])
	}
	set := envelope(t, doc)
	dims, _ := set["Dimensions"].([]interface{})
	keys, _ := dims[0].([]interface{})
	if len(keys) != 1 || keys[0] != "FunctionName" {
		t.Errorf("expected FunctionName in the dimension set, got %v", keys)
	}
}

func TestMetric_SameNameOverwrites(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")

	rec := New(DefaultNamespace).
		Metric("Attempts", 1, UnitCount).
		Metric("Attempts", 3, UnitCount)

	doc := flushToDoc(t, rec)
	if doc["Attempts"] != 3.0 {
		t.Errorf("expected latest value 3, got %v", doc["Attempts"])
	}
	set := envelope(t, doc)
	metas, _ := set["Metrics"].([]interface{})
	if len(metas) != 1 {
		t.Errorf("expected a single definition after overwrite, got %v", set["Metrics"])
	}
}

func TestTiming_RecordsElapsedMilliseconds(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")

	rec := New(DefaultNamespace).Timing("StageMs", time.Now().Add(-250*time.Millisecond))

	doc := flushToDoc(t, rec)
	v, ok := doc["StageMs"].(float64)
	if !ok {
		t.Fatalf("expected StageMs to be numeric, got %v", doc["StageMs"])
	}
	if v < 250 || v > 5000 {
		t.Errorf("expected roughly 250ms elapsed, got %v", v)
	}
	set := envelope(t, doc)
	metas, _ := set["Metrics"].([]interface{})
	meta, _ := metas[0].(map[string]interface{})
	if meta["Unit"] != UnitMilliseconds {
		t.Errorf("expected Milliseconds unit, got %v", meta["Unit"])
	}
}
