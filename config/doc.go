// Package config provides configuration loading and validation.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (DAYLI_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with DAYLI_ prefix:
//   - server.port → DAYLI_SERVER_PORT
//   - store.endpoint → DAYLI_STORE_ENDPOINT
//   - ratelimit.redis_url → DAYLI_RATELIMIT_REDIS_URL
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, max_file_size, policy_ttl, url_ttl
//   - Store: S3-compatible object store connection (optional)
//   - Fallback: local blob store DSN
//   - Records: inline image record backend (optional)
//   - RateLimit: Redis URL and per-window ceilings
//   - Auth: bearer tokens (inline or file)
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - File size ceiling and rate ceilings must be positive
//   - TTLs and the rate window must be at least one second
//   - Log level must be debug, info, warn, or error
package config
