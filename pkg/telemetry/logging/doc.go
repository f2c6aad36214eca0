// Package logging configures log/slog for the service.
//
// New returns a *slog.Logger whose handler adds the request-scoped fields
// stored with WithRequestID, WithConversationID and WithProcessingLevel,
// and redacts PII from string attributes when RedactPII is set:
//
//	logger, err := logging.New(logging.ConfigFrom(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "request blocked", "law", "first")
//
// Built-in redaction covers API keys, bearer tokens, email addresses, card
// numbers, SSNs, phone numbers and password assignments. Values of keys that
// look like credentials (token, secret, api_key, ...) are masked whole.
package logging
