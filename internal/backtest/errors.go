package backtest

import "fmt"

// ConfigError reports an invalid backtest configuration. It is returned
// before any simulation work begins.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid backtest config: %s %s", e.Field, e.Reason)
}

// DataUnavailableError reports that no signal rows at all exist for the
// requested signal and date range. Per-day, per-ticker price gaps are
// absorbed inside the simulation and never produce this error.
type DataUnavailableError struct {
	SignalName string
	Hint       string
}

func (e *DataUnavailableError) Error() string {
	msg := fmt.Sprintf("no signal data found for %q", e.SignalName)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}
