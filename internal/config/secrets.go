package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	redact(&out.Redis.Password)

	// S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Server
	redact(&out.Server.APIKey)
	redact(&out.Server.AdminKey)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	out.Server.CORSOrigins = cloneStrings(cfg.Server.CORSOrigins)
	out.Reconcile.PreferredSources = cloneStrings(cfg.Reconcile.PreferredSources)
	out.Liquidation.ForceDelisted = cloneStrings(cfg.Liquidation.ForceDelisted)
	out.Liquidation.ForceActive = cloneStrings(cfg.Liquidation.ForceActive)

	// Copy maps so mutations to the redacted copy do not affect the original.
	if cfg.Funds != nil {
		out.Funds = make(map[string]string, len(cfg.Funds))
		for k, v := range cfg.Funds {
			out.Funds[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
