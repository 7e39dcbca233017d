// Copyright (c) 2025 Cmpfetch
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging provides utilities for secure logging and error presentation.
// It includes functions for masking sensitive information in log messages and
// formatting errors for user-friendly display while protecting credentials and secrets.
//
// The package helps ensure that sensitive data like tunnel authtokens and API keys
// are not accidentally exposed in logs or error messages shown to users.
package logging

import (
	"regexp"
)

var (
	reAuthtoken = regexp.MustCompile(`(?i)(authtoken[= ])([A-Za-z0-9._-]+)`)
	reToken     = regexp.MustCompile(`(?i)(token=|bearer\s+)([A-Za-z0-9._-]+)`)
	reAPIKey    = regexp.MustCompile(`(?i)(apikey=|api_key=)([^\s;]+)`)
)

// Mask replaces sensitive values in the input string with "*". The authtoken
// pattern also covers env-style pairs like NGROK_AUTHTOKEN=...
func Mask(s string) string {
	out := s
	out = reAuthtoken.ReplaceAllString(out, "$1***")
	out = reToken.ReplaceAllString(out, "$1***")
	out = reAPIKey.ReplaceAllString(out, "$1***")
	return out
}
