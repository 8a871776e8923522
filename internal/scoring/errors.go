package scoring

import "fmt"

// ConfigurationError reports a missing/inactive scoring config or a
// malformed configuration that cannot be scored against.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "scoring configuration: " + e.Reason
}

// InsufficientDataError reports an analysis requested with too few
// historical samples to be meaningful.
type InsufficientDataError struct {
	Needed int
	Got    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient historical data: need %d samples, have %d", e.Needed, e.Got)
}
