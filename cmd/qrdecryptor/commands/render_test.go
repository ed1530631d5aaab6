package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/qrdecryptor/qrdecryptor/pkg/decoder"
	appfsm "github.com/qrdecryptor/qrdecryptor/pkg/fsm"
	"github.com/qrdecryptor/qrdecryptor/pkg/payload"
	"github.com/qrdecryptor/qrdecryptor/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func successSnapshot(data string) session.Snapshot {
	region := decoder.Corners{
		TopLeft:     decoder.Point{X: 1, Y: 2},
		TopRight:    decoder.Point{X: 3, Y: 2},
		BottomRight: decoder.Point{X: 3, Y: 4},
		BottomLeft:  decoder.Point{X: 1, Y: 4},
	}
	return session.Snapshot{
		Status:  session.Success,
		Attempt: 3,
		Result:  &session.Result{Result: payload.Classify(data), Region: &region},
	}
}

func TestRenderText_WiFi(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out, "text", false)

	require.NoError(t, r.render(successSnapshot("WIFI:S:HomeNet;T:WPA;;"), nil))

	got := out.String()
	assert.Contains(t, got, "[Success] WIFI_CONFIG")
	assert.Contains(t, got, "WIFI:S:HomeNet;T:WPA;;")
	assert.Contains(t, got, "SSID        HomeNet")
	assert.Contains(t, got, "PASSWORD    ---")
	assert.Contains(t, got, "ENCRYPTION  WPA")
	assert.Contains(t, got, "REGION      (1.0,2.0) (3.0,2.0) (3.0,4.0) (1.0,4.0)")
}

func TestRenderText_URL(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out, "text", false)
	require.NoError(t, r.render(successSnapshot("https://example.com/a"), nil))
	assert.Contains(t, out.String(), "[Success] URL\nhttps://example.com/a\n")
	assert.NotContains(t, out.String(), "\x1b]8;;", "buffers are not terminals")

	out.Reset()
	r.links = true
	require.NoError(t, r.render(successSnapshot("https://example.com/a"), nil))
	assert.Contains(t, out.String(), "\x1b]8;;https://example.com/a\x1b\\https://example.com/a\x1b]8;;\x1b\\")
}

func TestRenderText_Miss(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out, "text", false)
	require.NoError(t, r.render(session.Snapshot{Status: session.Failure, Attempt: 1}, nil))
	assert.Equal(t, "[Error] FAILED_TO_DECODE_PATTERN\n", out.String())
}

func TestRenderText_EscapesControlCharacters(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out, "text", false)
	require.NoError(t, r.render(successSnapshot("line one\nline\x1b[31m two"), nil))
	assert.Contains(t, out.String(), "line one\nline�[31m two")
}

func TestRenderRaw(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out, "text", true)
	require.NoError(t, r.render(successSnapshot("hello"), nil))
	assert.Equal(t, "hello\n", out.String())

	out.Reset()
	require.NoError(t, r.render(session.Snapshot{Status: session.Failure}, nil))
	assert.Empty(t, out.String())
}

func TestRenderJSON(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out, "json", false)
	run := &appfsm.ScanResponse{Origin: "s3", SHA256: "abc", Status: appfsm.StatusSuccess}

	require.NoError(t, r.render(successSnapshot("WIFI:S:Cafe;P:latte;;"), run))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "success", got["status"])
	assert.Equal(t, "Success", got["badge"])
	assert.EqualValues(t, 3, got["attempt"])

	result := got["result"].(map[string]any)
	assert.Equal(t, "network_credential", result["kind"])
	assert.Equal(t, "WIFI:S:Cafe;P:latte;;", result["raw_payload"])

	runView := got["run"].(map[string]any)
	assert.Equal(t, "s3", runView["origin"])
}

func TestRenderJSON_Miss(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out, "json", false)
	require.NoError(t, r.render(session.Snapshot{Status: session.Failure, Attempt: 2}, nil))
	assert.True(t, strings.Contains(out.String(), `"message": "FAILED_TO_DECODE_PATTERN"`))
}

func TestMissError(t *testing.T) {
	assert.NoError(t, missError(session.Snapshot{Status: session.Success}))

	err := missError(session.Snapshot{Status: session.Failure})
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.code)
}
