// Package config loads sdrfcheck configuration.
//
// Configuration comes from an optional YAML file and SDRFCHECK_* environment
// variables, in that order of precedence (environment wins):
//
//	templates:
//	  dir: ./templates
//	  default: default
//	validation:
//	  parallelism: 4
//	  max_errors: 0
//	ontology:
//	  mode: ols            # ols | cache | offline
//	  cache_path: data/ontology.db
//	  ols:
//	    requests_per_second: 5
//	    burst: 10
//	history:
//	  enabled: true
//	  path: data/history.db
//	  retention:
//	    days: 30
//	    schedule: "0 3 * * *"
//	telemetry:
//	  logging:
//	    level: info
//	    format: text
//
// Environment variables follow SDRFCHECK_SECTION_FIELD, e.g.
// SDRFCHECK_ONTOLOGY_MODE=cache or SDRFCHECK_VALIDATION_MAX_ERRORS=100.
package config
