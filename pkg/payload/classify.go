// Package payload classifies decoded barcode payloads and extracts
// structured fields from network-credential (Wi-Fi) payloads.
package payload

import "strings"

const (
	credentialPrefix = "WIFI:"

	// Missing is the placeholder for credential fields absent from the payload.
	Missing = "---"
)

var urlPrefixes = []string{"http://", "https://"}

// Credential is the network record carried by a WIFI: payload.
type Credential struct {
	SSID           string `json:"ssid"`
	Passphrase     string `json:"passphrase"`
	EncryptionType string `json:"encryption_type"`
}

// Result is the classification of one payload.
type Result struct {
	Kind       Kind        `json:"kind"`
	RawPayload string      `json:"raw_payload"`
	Credential *Credential `json:"credential,omitempty"`
}

// Classify assigns exactly one Kind to data. The credential prefix is
// checked before the URL prefixes and the order is part of the contract.
func Classify(data string) Result {
	if strings.HasPrefix(data, credentialPrefix) {
		return Result{
			Kind:       NetworkCredential,
			RawPayload: data,
			Credential: &Credential{
				SSID:           field(data, "S:"),
				Passphrase:     field(data, "P:"),
				EncryptionType: field(data, "T:"),
			},
		}
	}

	for _, p := range urlPrefixes {
		if strings.HasPrefix(data, p) {
			return Result{Kind: URL, RawPayload: data}
		}
	}

	return Result{Kind: PlainText, RawPayload: data}
}

// field returns the first non-empty run of non-';' characters that follows
// marker and is terminated by ';', or Missing. Values are not unescaped, so
// a value containing ';' is cut at its first occurrence.
func field(data, marker string) string {
	from := 0
	for {
		i := strings.Index(data[from:], marker)
		if i < 0 {
			return Missing
		}
		start := from + i + len(marker)

		end := strings.IndexByte(data[start:], ';')
		if end < 0 {
			// no terminator anywhere after this marker, so none after later ones either
			return Missing
		}
		if end > 0 {
			return data[start : start+end]
		}

		from = from + i + 1
	}
}
