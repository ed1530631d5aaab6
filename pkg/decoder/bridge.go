// Package decoder bridges pixel buffers to a matrix-barcode decoder.
package decoder

import (
	"log/slog"
	"time"

	"github.com/qrdecryptor/qrdecryptor/pkg/imagesource"
)

// Decoder is the external matrix-barcode capability. pix is flat RGBA of
// length width*height*4. A nil symbol with a nil error means nothing was
// found; an error means the input itself was invalid.
type Decoder interface {
	Decode(pix []byte, width, height int) (*Symbol, error)
}

// Observer receives the duration and outcome of each decode attempt
type Observer func(elapsed time.Duration, found bool)

// Bridge runs one decode attempt per buffer
type Bridge struct {
	decoder  Decoder
	observer Observer
}

// NewBridge creates a bridge over dec. observer may be nil.
func NewBridge(dec Decoder, observer Observer) *Bridge {
	return &Bridge{decoder: dec, observer: observer}
}

// Locate returns the symbol in buf, or nil. Not finding a symbol is a normal
// outcome, so decoder errors are logged and reported as nil.
func (b *Bridge) Locate(buf *imagesource.Buffer) *Symbol {
	if buf == nil {
		return nil
	}

	start := time.Now()
	sym, err := b.decoder.Decode(buf.Pix, buf.Width, buf.Height)
	elapsed := time.Since(start)

	if err != nil {
		slog.Error("decode_rejected_input", "width", buf.Width, "height", buf.Height, "error", err)
		sym = nil
	}
	if sym != nil && sym.Payload == "" {
		sym = nil
	}

	if b.observer != nil {
		b.observer(elapsed, sym != nil)
	}

	if sym == nil {
		slog.Info("decode_no_symbol", "origin", buf.Origin, "width", buf.Width, "height", buf.Height, "elapsed_ms", elapsed.Milliseconds())
		return nil
	}

	slog.Info("decode_symbol_found", "origin", buf.Origin, "payload_len", len(sym.Payload), "elapsed_ms", elapsed.Milliseconds())
	return sym
}
