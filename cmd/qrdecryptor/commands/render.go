package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/mattn/go-isatty"
	"github.com/qrdecryptor/qrdecryptor/pkg/decoder"
	appfsm "github.com/qrdecryptor/qrdecryptor/pkg/fsm"
	"github.com/qrdecryptor/qrdecryptor/pkg/payload"
	"github.com/qrdecryptor/qrdecryptor/pkg/session"
)

// missMessage is shown when an image held no readable code
const missMessage = "FAILED_TO_DECODE_PATTERN"

// renderer writes scan outcomes as text or JSON
type renderer struct {
	mu     sync.Mutex
	out    io.Writer
	format string
	raw    bool
	links  bool
}

func newRenderer(out io.Writer, format string, raw bool) *renderer {
	return &renderer{out: out, format: format, raw: raw, links: isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type view struct {
	Status  session.Status       `json:"status"`
	Badge   string               `json:"badge"`
	Attempt session.Ticket       `json:"attempt"`
	Result  *session.Result      `json:"result,omitempty"`
	Message string               `json:"message,omitempty"`
	Run     *appfsm.ScanResponse `json:"run,omitempty"`
}

// render writes one finished snapshot. run is nil outside the FSM path.
func (r *renderer) render(snap session.Snapshot, run *appfsm.ScanResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.raw {
		if snap.Result != nil {
			_, err := fmt.Fprintln(r.out, snap.Result.RawPayload)
			return err
		}
		return nil
	}

	if r.format == "json" {
		v := view{Status: snap.Status, Badge: snap.Status.Badge(), Attempt: snap.Attempt, Result: snap.Result, Run: run}
		if snap.Status == session.Failure {
			v.Message = missMessage
		}
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	var b strings.Builder
	if snap.Result == nil {
		fmt.Fprintf(&b, "[%s] %s\n", snap.Status.Badge(), missMessage)
		_, err := io.WriteString(r.out, b.String())
		return err
	}

	res := snap.Result
	fmt.Fprintf(&b, "[%s] %s\n", snap.Status.Badge(), res.Kind.Label())

	if res.Kind == payload.URL {
		b.WriteString(r.link(res.RawPayload))
	} else {
		b.WriteString(printable(res.RawPayload))
	}
	b.WriteString("\n")

	if c := res.Credential; c != nil {
		writeField(&b, "SSID", c.SSID)
		writeField(&b, "PASSWORD", c.Passphrase)
		writeField(&b, "ENCRYPTION", c.EncryptionType)
	}
	if res.Region != nil {
		writeField(&b, "REGION", formatRegion(*res.Region))
	}
	if run != nil && run.SHA256 != "" {
		writeField(&b, "SHA256", run.SHA256)
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}

// status writes a one-line progress badge
func (r *renderer) status(w io.Writer, snap session.Snapshot) {
	if r.raw || r.format == "json" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(w, "[%s] attempt %d\n", snap.Status.Badge(), snap.Attempt)
}

// link renders url as an OSC 8 hyperlink on terminals
func (r *renderer) link(url string) string {
	text := printable(url)
	if !r.links {
		return text
	}
	return "\x1b]8;;" + text + "\x1b\\" + text + "\x1b]8;;\x1b\\"
}

func writeField(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "  %-11s %s\n", name, printable(value))
}

func formatRegion(c decoder.Corners) string {
	parts := make([]string, 0, 4)
	for _, p := range c.Path() {
		parts = append(parts, fmt.Sprintf("(%.1f,%.1f)", p.X, p.Y))
	}
	return strings.Join(parts, " ")
}

// printable replaces control characters other than newline and tab so
// payloads cannot drive the terminal
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			return unicode.ReplacementChar
		}
		return r
	}, s)
}
