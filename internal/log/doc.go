// Package log builds the slog loggers used by SEOScan.
//
// Every logger is wrapped in a SecureHandler that masks secrets before a
// record reaches the output: the LLM API key, cookies and custom headers
// sent to audited sites, Redis and Elasticsearch credentials, and
// credentials embedded in URLs. Masking also applies in verbose mode.
//
// Text output uses slog's text handler. JSON output is produced by zap
// through ZapHandler, an slog.Handler backed by a zapcore.Core, so
// components only ever see *slog.Logger.
//
//	logger, err := log.New(os.Stderr, "json", verbose)
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
package log
