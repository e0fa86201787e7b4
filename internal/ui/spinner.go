// spinner.go implements the spinner shown while the dashboard connects to the
// cluster and waits for the first synchronization.
package ui

import (
	"fmt"
	"io"
	"time"
)

// elapsedAfter is how long a wait lasts before the spinner starts appending
// the elapsed seconds to the message.
const elapsedAfter = 3 * time.Second

// StartSpinner prints a lightweight ASCII spinner until the returned
// stop function is called. The stop function prints either "[done]"
// or "[fail]" depending on the success flag.
func StartSpinner(w io.Writer, message string) func(success bool) {
	frames := []rune{'|', '/', '-', '\\'}
	start := time.Now()
	done := make(chan struct{})
	idle := make(chan struct{})
	go func() {
		defer close(idle)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		idx := 0
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				line := fmt.Sprintf("%s %c", message, frames[idx])
				if waited := time.Since(start); waited >= elapsedAfter {
					line += fmt.Sprintf(" (%ds)", int(waited.Seconds()))
				}
				fmt.Fprintf(w, "\r%s\x1b[K", line)
				idx = (idx + 1) % len(frames)
			}
		}
	}()
	return func(success bool) {
		select {
		case <-done:
		default:
			close(done)
		}
		<-idle
		status := "[done]"
		if !success {
			status = "[fail]"
		}
		fmt.Fprintf(w, "\r%s %s\x1b[K\n", message, status)
	}
}
