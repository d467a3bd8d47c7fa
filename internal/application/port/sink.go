package port

import "time"

type Sink interface {
	// WriteLine appends one timestamped line.
	WriteLine(ts time.Time, line string) error
	NewLine() error
}
