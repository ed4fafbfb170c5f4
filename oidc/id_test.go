// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		opt        []Option
		wantPrefix string
	}{
		{
			name: "no-prefix",
		},
		{
			name:       "with-prefix",
			opt:        []Option{WithPrefix("st")},
			wantPrefix: "st_",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewID(tt.opt...)
			require.NoError(err)
			if tt.wantPrefix != "" {
				assert.True(strings.HasPrefix(got, tt.wantPrefix))
				assert.Len(got, len(tt.wantPrefix)+DefaultIDLength)
			} else {
				assert.Len(got, DefaultIDLength)
			}
		})
	}
}
