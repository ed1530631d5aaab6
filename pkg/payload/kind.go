package payload

// Kind is the classification assigned to a decoded payload.
type Kind int

const (
	PlainText Kind = iota
	URL
	NetworkCredential
)

// String returns the lower-case identifier used in logs and JSON output.
func (k Kind) String() string {
	switch k {
	case URL:
		return "url"
	case NetworkCredential:
		return "network_credential"
	default:
		return "plain_text"
	}
}

// Label returns the display label shown next to a result.
func (k Kind) Label() string {
	switch k {
	case URL:
		return "URL"
	case NetworkCredential:
		return "WIFI_CONFIG"
	default:
		return "TEXT"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
