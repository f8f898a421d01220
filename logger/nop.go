package logger

type nopLogger struct{}

// Nop returns a Logger that discards everything. It is the logger a Port
// uses when none is configured.
func Nop() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(string, ...any) {}

func (nopLogger) Info(string, ...any) {}

func (nopLogger) Warn(string, ...any) {}

func (nopLogger) Error(string, ...any) {}

func (nopLogger) SetLevel(Level) {}

func (nopLogger) Level() Level {
	return ErrorLevel + 1
}

func (n nopLogger) With(...any) Logger {
	return n
}
