// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads courier's YAML configuration.
//
// The file is named by the COURIER_CONFIG environment variable ([Load])
// or a --config flag ([LoadFile]). There is no discovery and no
// fallback location. Values start from [Default], the file is decoded
// over them, and then the section named by the file's environment
// (development, staging or production) is decoded over the result, so
// a section only needs the keys it changes:
//
//	environment: production
//	agent:
//	  base_url: http://localhost:8000
//	production:
//	  agent:
//	    base_url: http://agent.internal:8000
//	  logging:
//	    format: json
//
// ${VAR} and ${VAR:-default} references in paths, URLs and secret
// sources are expanded from the process environment. Nothing else in
// the environment changes configuration.
package config
