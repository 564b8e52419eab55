// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package config loads Cinematch configuration with koanf.

Sources, lowest to highest priority:

 1. Struct defaults (defaultConfig)
 2. YAML file: $CONFIG_PATH, else config.yaml / config.yml / /etc/cinematch/config.yaml
 3. Environment variables, through the explicit envMappings table

Example YAML:

	database:
	  path: /data/cinematch.duckdb
	recommend:
	  min_rating: 3.0
	  fanout: 10
	artifact:
	  backend: file
	  path: /data/artifacts
	notify:
	  backend: redis
	  redis_addr: redis:6379
*/
package config
