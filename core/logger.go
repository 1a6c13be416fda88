package core

// Logger is any service that can log messages at several levels.
// Extra args may carry errors, maps or the acting user for reporting services.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
