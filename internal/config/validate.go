package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (r *ValidationResult) addError(field, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Hint: hint})
}

func (r *ValidationResult) addWarning(field, message, hint string) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: message, Hint: hint})
}

// Validate checks the configuration and returns fatal errors and warnings.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}
	c.Database.validate(result)
	c.Server.validate(result)
	c.Paging.validate(result)
	c.Observability.validate(result)
	c.Schema.validate(result)
	return result
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	if d.ConnectionString != "" {
		if _, err := d.MySQLConfig(); err != nil {
			result.addError("database.dsn", err.Error(), "use user:pass@tcp(host:port)/db")
		}
	} else if d.Port < 1 || d.Port > 65535 {
		result.addError("database.port", fmt.Sprintf("port %d is out of valid range (1-65535)", d.Port), "")
	}

	validModes := map[string]bool{"": true, "off": true, "skip-verify": true, "verify-ca": true, "verify-full": true}
	if !validModes[d.TLS.Mode] {
		result.addError("database.tls.mode", fmt.Sprintf("invalid TLS mode %q", d.TLS.Mode), "valid values are: off, skip-verify, verify-ca, verify-full")
	}
	if (d.TLS.CertFile == "") != (d.TLS.KeyFile == "") {
		result.addError("database.tls", "cert_file and key_file must be set together", "")
	}
	if d.TLS.Mode == "skip-verify" {
		result.addWarning("database.tls.mode", "server certificate is not verified", "use verify-full in production")
	}

	if d.Pool.MaxOpen < 0 {
		result.addError("database.pool.max_open", "max_open cannot be negative", "")
	}
	if d.Pool.MaxIdle < 0 {
		result.addError("database.pool.max_idle", "max_idle cannot be negative", "")
	}
	if d.Pool.MaxOpen > 0 && d.Pool.MaxIdle > d.Pool.MaxOpen {
		result.addWarning("database.pool.max_idle", "max_idle exceeds max_open", "the driver caps idle connections at max_open")
	}
	if d.ConnectionTimeout < 0 {
		result.addError("database.connection_timeout", "connection_timeout cannot be negative", "")
	}
}

func (s *ServerConfig) validate(result *ValidationResult) {
	if s.Port < 1 || s.Port > 65535 {
		result.addError("server.port", fmt.Sprintf("port %d is out of valid range (1-65535)", s.Port), "")
	}
	if s.ShutdownTimeout <= 0 {
		result.addError("server.shutdown_timeout", "shutdown_timeout must be positive", "")
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.IdleTimeout < 0 {
		result.addError("server", "read, write and idle timeouts cannot be negative", "")
	}
}

func (p *PagingConfig) validate(result *ValidationResult) {
	if p.DefaultFirst <= 0 {
		result.addError("paging.default_first", "default_first must be greater than 0", "")
	}
	if p.MaxFirst < 0 {
		result.addError("paging.max_first", "max_first cannot be negative", "set 0 to disable the cap")
	}
	if p.MaxFirst > 0 && p.DefaultFirst > p.MaxFirst {
		result.addWarning("paging.default_first", fmt.Sprintf("default_first %d exceeds max_first %d", p.DefaultFirst, p.MaxFirst), "default_first is clamped to max_first")
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[o.Logging.Level] {
		result.addError("observability.logging.level", fmt.Sprintf("invalid log level %q", o.Logging.Level), "valid values are: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[o.Logging.Format] {
		result.addError("observability.logging.format", fmt.Sprintf("invalid log format %q", o.Logging.Format), "valid values are: json, text")
	}
	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.addError("observability.trace_sample_ratio", fmt.Sprintf("trace_sample_ratio %v must be between 0 and 1", o.TraceSampleRatio), "")
	}

	o.OTLP.validate("observability.otlp", result)
	if o.Traces != nil {
		o.Traces.validate("observability.traces", result)
	}
	if o.Logs != nil {
		o.Logs.validate("observability.logs", result)
	}
}

func (o *OTLPConfig) validate(prefix string, result *ValidationResult) {
	validProtocols := map[string]bool{"": true, "grpc": true, "http/protobuf": true}
	if !validProtocols[o.Protocol] {
		result.addError(prefix+".protocol", fmt.Sprintf("invalid OTLP protocol %q", o.Protocol), "valid values are: grpc, http/protobuf")
	}
	if o.Protocol == "http/protobuf" && !validOTLPEndpoint(o.Endpoint) {
		result.addError(prefix+".endpoint", fmt.Sprintf("invalid OTLP endpoint %q for http/protobuf", o.Endpoint), "use host:port or a full URL")
	}
	validCompressions := map[string]bool{"": true, "none": true, "gzip": true}
	if !validCompressions[o.Compression] {
		result.addError(prefix+".compression", fmt.Sprintf("invalid OTLP compression %q", o.Compression), "valid values are: none, gzip")
	}
}

func validOTLPEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return parsed.Host != ""
	}
	_, _, err := net.SplitHostPort(endpoint)
	return err == nil
}

var pascalCaseTypePattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)

var validColumnTypes = map[string]bool{
	"": true, "string": true, "int": true, "integer": true, "bigint": true,
	"float": true, "double": true, "decimal": true, "bool": true, "boolean": true,
}

func (s *SchemaConfig) validate(result *ValidationResult) {
	if len(s.Models) == 0 {
		result.addError("schema.models", "at least one model is required", "")
		return
	}
	before := len(result.Errors)
	for i, mc := range s.Models {
		field := fmt.Sprintf("schema.models[%d]", i)
		if !pascalCaseTypePattern.MatchString(mc.Name) {
			result.addError(field+".name", fmt.Sprintf("model name %q must be PascalCase", mc.Name), "")
		}
		if strings.TrimSpace(mc.Table) == "" {
			result.addError(field+".table", fmt.Sprintf("model %s requires a table", mc.Name), "")
		}
		for _, col := range mc.Columns {
			if !validColumnTypes[strings.ToLower(col.Type)] {
				result.addError(field+".columns", fmt.Sprintf("column %s.%s has unknown type %q", mc.Name, col.Name, col.Type), "valid values are: string, int, float, boolean")
			}
		}
		for _, rc := range mc.Relations {
			if _, err := ParseRelationKind(rc.Kind); err != nil {
				result.addError(field+".relations", fmt.Sprintf("relation %s.%s: %v", mc.Name, rc.Name, err), "valid values are: many_to_one, one_to_many, many_to_many")
			}
		}
	}
	if len(result.Errors) > before {
		return
	}
	if _, err := s.BuildRegistry(); err != nil {
		result.addError("schema", err.Error(), "")
	}
}
