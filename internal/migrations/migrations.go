// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package migrations embeds the SQL schema migrations for the durable store.
package migrations

import "embed"

// Files holds the embedded SQL migration files, applied in lexical order.
//
//go:embed *.sql
var Files embed.FS
