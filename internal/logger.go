package internal

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// SecureLogger provides leveled logging with sensitive data redaction
type SecureLogger struct {
	logger    zerolog.Logger
	level     LogLevel
	debug     bool
	quiet     bool
	redactors []Redactor
}

// Redactor defines an interface for redacting sensitive information
type Redactor interface {
	Redact(input string) string
}

// HeaderRedactor redacts credential-bearing header values up to the end of the line
type HeaderRedactor struct{}

func (r *HeaderRedactor) Redact(input string) string {
	patterns := []string{
		"proxy-authorization:",
		"authorization:",
		"set-cookie:",
		"cookie:",
	}

	result := input
	for _, pattern := range patterns {
		lower := strings.ToLower(result)
		index := strings.Index(lower, pattern)
		if index == -1 {
			continue
		}
		start := index + len(pattern)
		for start < len(result) && result[start] == ' ' {
			start++
		}
		if strings.HasPrefix(result[start:], "[REDACTED]") {
			continue
		}
		end := start
		for end < len(result) && result[end] != '\n' && result[end] != '\r' {
			end++
		}
		if end > start {
			result = result[:start] + "[REDACTED]" + result[end:]
		}
	}
	return result
}

// URLRedactor redacts sensitive URL parameters and userinfo
type URLRedactor struct{}

func (r *URLRedactor) Redact(input string) string {
	sensitiveParams := []string{
		"access_token=",
		"token=",
		"signature=",
		"x-amz-signature=",
		"key=",
		"secret=",
		"password=",
	}

	result := input
	for _, param := range sensitiveParams {
		lower := strings.ToLower(result)
		index := strings.Index(lower, param)
		if index == -1 {
			continue
		}
		start := index + len(param)
		if strings.HasPrefix(result[start:], "[REDACTED]") {
			continue
		}
		end := start
		for end < len(result) && result[end] != '&' && result[end] != ' ' && result[end] != '\n' {
			end++
		}
		if end > start {
			result = result[:start] + "[REDACTED]" + result[end:]
		}
	}

	// user:pass@host
	if scheme := strings.Index(result, "://"); scheme != -1 {
		rest := result[scheme+3:]
		at := strings.Index(rest, "@")
		slash := strings.IndexAny(rest, "/ ")
		if at != -1 && (slash == -1 || at < slash) {
			result = result[:scheme+3] + "[REDACTED]" + rest[at:]
		}
	}
	return result
}

// NewSecureLogger creates a new secure logger writing human-readable lines to output
func NewSecureLogger(output io.Writer, level LogLevel, debug, quiet bool) *SecureLogger {
	if quiet {
		level = LogLevelError
	}

	writer := zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.DateTime,
		NoColor:    output != os.Stderr,
	}

	ctx := zerolog.New(writer).Level(level.zerolog()).With().Timestamp()
	if debug {
		ctx = ctx.CallerWithSkipFrameCount(4)
	}

	return &SecureLogger{
		logger: ctx.Logger(),
		level:  level,
		debug:  debug,
		quiet:  quiet,
		redactors: []Redactor{
			&HeaderRedactor{},
			&URLRedactor{},
		},
	}
}

// NewDefaultLogger creates a logger with default settings
func NewDefaultLogger(debug, quiet bool) *SecureLogger {
	level := LogLevelInfo
	if debug {
		level = LogLevelDebug
	}
	return NewSecureLogger(os.Stderr, level, debug, quiet)
}

// With returns a child logger that carries key=value on every line
func (sl *SecureLogger) With(key, value string) *SecureLogger {
	child := *sl
	child.logger = sl.logger.With().Str(key, value).Logger()
	return &child
}

func (sl *SecureLogger) redactSensitiveData(input string) string {
	result := input
	for _, redactor := range sl.redactors {
		result = redactor.Redact(result)
	}
	return result
}

func (sl *SecureLogger) shouldLog(level LogLevel) bool {
	if sl.quiet && level > LogLevelError {
		return false
	}
	return level <= sl.level
}

func (sl *SecureLogger) emit(level LogLevel, format string, args []interface{}) {
	if !sl.shouldLog(level) {
		return
	}
	message := sl.redactSensitiveData(fmt.Sprintf(format, args...))

	var event *zerolog.Event
	switch level {
	case LogLevelError:
		event = sl.logger.Error()
	case LogLevelWarn:
		event = sl.logger.Warn()
	case LogLevelDebug:
		event = sl.logger.Debug()
	default:
		event = sl.logger.Info()
	}
	event.Msg(message)
}

// Error logs an error message
func (sl *SecureLogger) Error(format string, args ...interface{}) {
	sl.emit(LogLevelError, format, args)
}

// Warn logs a warning message
func (sl *SecureLogger) Warn(format string, args ...interface{}) {
	sl.emit(LogLevelWarn, format, args)
}

// Info logs an info message
func (sl *SecureLogger) Info(format string, args ...interface{}) {
	sl.emit(LogLevelInfo, format, args)
}

// Debug logs a debug message
func (sl *SecureLogger) Debug(format string, args ...interface{}) {
	sl.emit(LogLevelDebug, format, args)
}

// LogHTTPRequest logs an HTTP request with sensitive data redacted
func (sl *SecureLogger) LogHTTPRequest(req *http.Request) {
	if !sl.shouldLog(LogLevelDebug) {
		return
	}
	sl.Debug("HTTP Request: %s %s Headers: %v", req.Method, req.URL.String(), sl.sanitizeHeaders(req.Header))
}

// LogHTTPResponse logs an HTTP response with sensitive data redacted
func (sl *SecureLogger) LogHTTPResponse(resp *http.Response) {
	if !sl.shouldLog(LogLevelDebug) {
		return
	}
	sl.Debug("HTTP Response: %s Headers: %v", resp.Status, sl.sanitizeHeaders(resp.Header))
}

func (sl *SecureLogger) sanitizeHeaders(header http.Header) map[string]string {
	sanitized := make(map[string]string, len(header))
	for name, values := range header {
		if sl.isSensitiveHeader(name) {
			sanitized[name] = "[REDACTED]"
		} else {
			sanitized[name] = strings.Join(values, ", ")
		}
	}
	return sanitized
}

func (sl *SecureLogger) isSensitiveHeader(name string) bool {
	sensitiveHeaders := []string{
		"authorization",
		"cookie",
		"set-cookie",
		"x-auth-token",
		"x-api-key",
		"token",
	}

	lowerName := strings.ToLower(name)
	for _, sensitive := range sensitiveHeaders {
		if strings.Contains(lowerName, sensitive) {
			return true
		}
	}
	return false
}
