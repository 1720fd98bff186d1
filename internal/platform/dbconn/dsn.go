// Package dbconn holds the Postgres connection string helpers shared by the
// API process and the migration command.
package dbconn

import (
	"net/url"
	"strings"
)

const preparedBinaryParam = "disable_prepared_binary_result"

// NormalizeURL sets disable_prepared_binary_result=yes on URL-style DSNs when
// asked to, so PgBouncer in transaction mode accepts our prepared statements.
// An explicit value already present in the URL wins.
func NormalizeURL(raw string, disablePreparedBinaryResult bool) string {
	raw = strings.TrimSpace(raw)
	if !disablePreparedBinaryResult {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return raw
	}

	query := parsed.Query()
	if query.Get(preparedBinaryParam) != "" {
		return raw
	}
	query.Set(preparedBinaryParam, "yes")
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// Name extracts the database name from either a URL or a key=value DSN.
func Name(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if parsed, err := url.Parse(trimmed); err == nil && parsed.Scheme != "" {
		return strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/"))
	}

	for _, token := range strings.Fields(trimmed) {
		if name, ok := strings.CutPrefix(token, "dbname="); ok {
			return strings.Trim(name, `"'`)
		}
	}
	return ""
}

// Redacted returns the DSN with its password masked, for logs.
func Redacted(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if parsed, err := url.Parse(trimmed); err == nil && parsed.Scheme != "" {
		return parsed.Redacted()
	}

	fields := strings.Fields(trimmed)
	for i, token := range fields {
		if strings.HasPrefix(token, "password=") {
			fields[i] = "password=xxxxx"
		}
	}
	return strings.Join(fields, " ")
}
