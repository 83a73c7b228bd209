package sniffer

import (
	"bufio"
	"io"
)

// Console is a buffered text transport. Bytes are pushed out by Service.
type Console struct {
	w *bufio.Writer
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: bufio.NewWriterSize(w, 512)}
}

func (c *Console) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

// Service flushes buffered output.
func (c *Console) Service() error {
	if c.w.Buffered() == 0 {
		return nil
	}
	return c.w.Flush()
}

func (c *Console) Ready() bool { return true }
