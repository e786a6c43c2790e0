package observe

import "errors"

// Config.Validate errors. Each is wrapped with the offending value.
var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: trace sample percentage outside [0, 1]")
	ErrInvalidTracingExporter = errors.New("observe: unknown tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: unknown metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: unknown log level")
)

// ErrNilObserver is returned by MiddlewareFromObserver for a nil Observer.
var ErrNilObserver = errors.New("observe: nil observer")

// RedactedFields are log field keys whose values are replaced before they
// reach zap. Provider credentials, porting PINs and carrier account numbers
// all pass through log calls on error paths.
var RedactedFields = []string{
	"password", "secret", "token",
	"api_key", "apiKey", "api_secret",
	"credential", "credentials",
	"pin", "account_number",
	"authorization",
}
