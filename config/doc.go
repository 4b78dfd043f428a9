// Package config loads callcache settings and assembles a Runtime from
// them: store backend, delivery dispatcher, key policy, HTTP resilience,
// telemetry and health checks.
//
// Configuration is JSON. String values may reference the environment
// (${VAR}) and secrets (secretref:env:NAME, secretref:file:NAME):
//
//	{
//	  "store": {"backend": "redis", "addr": "${REDIS_ADDR}", "password": "secretref:env:REDIS_PASSWORD"},
//	  "dispatcher": {"mode": "serial"},
//	  "failure": {"policy": "suppress"},
//	  "http": {"timeout": "5s", "max_attempts": 3},
//	  "observe": {"service_name": "catalog", "logging": {"enabled": true, "level": "info"}}
//	}
package config
