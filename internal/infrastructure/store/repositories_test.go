// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSender(t *testing.T) {
	tests := []struct {
		sender string
		want   string
	}{
		{"Ada Lovelace <Ada@Example.com>", "ada@example.com"},
		{"ada@example.com", "ada@example.com"},
		{"  ADA@EXAMPLE.COM  ", "ada@example.com"},
		{`"Grace Hopper" <grace@example.com>`, "grace@example.com"},
		{"<grace@example.com>", "grace@example.com"},
		{"broken <grace@example.com", "broken <grace@example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeSender(tt.sender), "sender %q", tt.sender)
	}
}

func TestListMigrationFiles(t *testing.T) {
	names, err := listMigrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	assert.True(t, sort.StringsAreSorted(names))
	for _, name := range names {
		assert.True(t, strings.HasSuffix(name, ".sql"), "unexpected migration file %q", name)
	}
	assert.Equal(t, "0001_init.sql", names[0])
}
