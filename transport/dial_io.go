package transport

import (
	"io"
	"os"
)

type ioduplex struct {
	io.WriteCloser
	io.ReadCloser
}

func (d *ioduplex) Close() error {
	if err := d.WriteCloser.Close(); err != nil {
		return err
	}
	if err := d.ReadCloser.Close(); err != nil {
		return err
	}
	return nil
}

// DialIO returns a channel writing to out and reading from in.
func DialIO(out io.WriteCloser, in io.ReadCloser) (Channel, error) {
	return &ioduplex{out, in}, nil
}

// DialStdio returns a channel over Stdout and Stdin.
func DialStdio() (Channel, error) {
	return DialIO(os.Stdout, os.Stdin)
}
