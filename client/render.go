package client

import (
	"fmt"
	"io"
)

// Render writes the text surface: the count, the two triggers and the
// error line when one is set
func Render(w io.Writer, s ViewState) error {
	if _, err := fmt.Fprintf(w, "Count: %d\n", s.DisplayedCount); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "[Increment] [Decrement]"); err != nil {
		return err
	}
	if s.LastError != "" {
		_, err := fmt.Fprintf(w, "Error: %s\n", s.LastError)
		return err
	}
	return nil
}
