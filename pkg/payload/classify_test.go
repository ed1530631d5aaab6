package payload

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Kinds(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Kind
	}{
		{"empty", "", PlainText},
		{"plain text", "hello world", PlainText},
		{"http", "http://example.com", URL},
		{"https", "https://example.com/a?b=1", URL},
		{"uppercase scheme is text", "HTTPS://example.com", PlainText},
		{"scheme without slashes", "https:example.com", PlainText},
		{"leading space", " https://example.com", PlainText},
		{"ftp", "ftp://example.com", PlainText},
		{"wifi", "WIFI:S:MyNet;P:secret123;T:WPA;", NetworkCredential},
		{"bare wifi prefix", "WIFI:", NetworkCredential},
		{"lowercase wifi is text", "wifi:S:x;", PlainText},
		{"wifi with url ssid", "WIFI:S:https://x;", NetworkCredential},
		{"url containing wifi", "https://example.com/WIFI:S:x;", URL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.in)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, tt.in, got.RawPayload)
			if tt.want == NetworkCredential {
				assert.NotNil(t, got.Credential)
			} else {
				assert.Nil(t, got.Credential)
			}
		})
	}
}

func TestClassify_Credential(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Credential
	}{
		{
			name: "all fields",
			in:   "WIFI:S:MyNet;P:secret123;T:WPA;",
			want: Credential{SSID: "MyNet", Passphrase: "secret123", EncryptionType: "WPA"},
		},
		{
			name: "open network",
			in:   "WIFI:T:nopass;",
			want: Credential{SSID: Missing, Passphrase: Missing, EncryptionType: "nopass"},
		},
		{
			name: "reordered fields",
			in:   "WIFI:T:WEP;P:pw;S:Cafe;;",
			want: Credential{SSID: "Cafe", Passphrase: "pw", EncryptionType: "WEP"},
		},
		{
			name: "missing terminator",
			in:   "WIFI:S:NoEnd",
			want: Credential{SSID: Missing, Passphrase: Missing, EncryptionType: Missing},
		},
		{
			name: "empty value skipped for later marker",
			in:   "WIFI:S:;T:WPA;S:Second;",
			want: Credential{SSID: "Second", Passphrase: Missing, EncryptionType: "WPA"},
		},
		{
			name: "escaped semicolon truncates",
			in:   `WIFI:S:my\;net;P:a:b;T:WPA;`,
			want: Credential{SSID: `my\`, Passphrase: "a:b", EncryptionType: "WPA"},
		},
		{
			name: "marker inside another value",
			in:   "WIFI:P:xS:inner;T:WPA;",
			want: Credential{SSID: "inner", Passphrase: "xS:inner", EncryptionType: "WPA"},
		},
		{
			name: "hidden flag ignored",
			in:   "WIFI:S:Lab;T:WPA;P:pw;H:true;;",
			want: Credential{SSID: "Lab", Passphrase: "pw", EncryptionType: "WPA"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.in)
			require.Equal(t, NetworkCredential, got.Kind)
			require.NotNil(t, got.Credential)
			if diff := cmp.Diff(tt.want, *got.Credential); diff != "" {
				t.Errorf("credential mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassify_URLUnchanged(t *testing.T) {
	in := "https://example.com/a?b=1"
	got := Classify(in)
	assert.Equal(t, URL, got.Kind)
	assert.Equal(t, in, got.RawPayload)
}

func TestClassify_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"https://example.com",
		"WIFI:S:MyNet;P:secret123;T:WPA;",
		strings.Repeat("S:", 50) + ";",
	}
	for _, in := range inputs {
		if diff := cmp.Diff(Classify(in), Classify(in)); diff != "" {
			t.Errorf("Classify(%q) not deterministic:\n%s", in, diff)
		}
	}
}

func TestKindLabels(t *testing.T) {
	assert.Equal(t, "URL", URL.Label())
	assert.Equal(t, "WIFI_CONFIG", NetworkCredential.Label())
	assert.Equal(t, "TEXT", PlainText.Label())
	assert.Equal(t, "network_credential", NetworkCredential.String())
}
