package alerting

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printwatch/internal/telemetry"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	path := filepath.Join("testdata", name)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	compiler := jsonschema.NewCompiler()
	require.NoError(t, compiler.AddResource(name, f))
	schema, err := compiler.Compile(name)
	require.NoError(t, err)
	return schema
}

func validateLine(t *testing.T, schema *jsonschema.Schema, line []byte) error {
	t.Helper()
	var payload any
	require.NoError(t, json.Unmarshal(line, &payload))
	return schema.Validate(payload)
}

// Every emitted line must satisfy the published wire contract.
func TestEmitterOutputMatchesWireContract(t *testing.T) {
	eventSchema := compileSchema(t, "event.schema.json")
	controlSchema := compileSchema(t, "control.schema.json")

	var buf bytes.Buffer
	em := NewEmitter(&buf)

	require.NoError(t, em.EmitEvent(&telemetry.Event{
		Timestamp:   "2025-03-01T10:00:12.300Z",
		ElapsedSec:  12.3,
		Severity:    telemetry.SeverityWarn,
		Signal:      "bed_temp_c",
		Value:       61.52341,
		ZScore:      3.41999,
		Message:     "Bed temp oscillating (PID/drafts).",
		Suggestions: []string{"Tune bed PID", "Cover enclosure / reduce drafts"},
	}))
	require.NoError(t, em.EmitControl(&telemetry.ControlAction{
		Timestamp:  "2025-03-01T10:00:12.300Z",
		ElapsedSec: 12.3,
		Action:     telemetry.PausePrint,
		Reason:     "nozzle_temp_c severe anomaly",
	}))

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 2)

	assert.NoError(t, validateLine(t, eventSchema, lines[0]))
	assert.NoError(t, validateLine(t, controlSchema, lines[1]))
}

// The schemas themselves must reject documents that break the contract,
// otherwise the happy-path check above proves nothing.
func TestWireContractRejectsMalformedDocuments(t *testing.T) {
	eventSchema := compileSchema(t, "event.schema.json")
	controlSchema := compileSchema(t, "control.schema.json")

	badEvents := []string{
		`{"ts":"x","t_sec":1,"severity":"FATAL","signal":"s","value":1,"zscore":1,"message":"m","suggestions":[]}`,
		`{"ts":"x","t_sec":1,"severity":"WARN","signal":"s","value":1,"zscore":1,"message":"m"}`,
		`{"ts":"x","t_sec":1,"severity":"WARN","signal":"s","value":"high","zscore":1,"message":"m","suggestions":[]}`,
	}
	for _, doc := range badEvents {
		assert.Error(t, validateLine(t, eventSchema, []byte(doc)))
	}

	badControls := []string{
		`{"ts":"x","t_sec":1,"control_action":"RESUME_PRINT","reason":"r"}`,
		`{"ts":"x","t_sec":1,"control_action":"PAUSE_PRINT"}`,
	}
	for _, doc := range badControls {
		assert.Error(t, validateLine(t, controlSchema, []byte(doc)))
	}
}
