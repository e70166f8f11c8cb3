package report

import (
	"fmt"
	"io"
)

// Sink receives rendered report output. Renderers are handed a sink
// explicitly instead of printing, so callers decide where output lands.
type Sink interface {
	// Summary receives one line of summary text.
	Summary(text string)
	// Table receives a fully rendered table block.
	Table(text string)
}

// WriterSink is a Sink that writes each block to w followed by a newline.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Summary(text string) {
	fmt.Fprintln(s.W, text)
}

func (s WriterSink) Table(text string) {
	fmt.Fprintln(s.W, text)
}
