package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckListen(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		token   string
		exposed bool
	}{
		{"loopback v4", "127.0.0.1:8730", "", false},
		{"loopback v6", "[::1]:8730", "", false},
		{"localhost", "localhost:8730", "", false},
		{"all interfaces", "0.0.0.0:8730", "", true},
		{"empty host", ":8730", "", true},
		{"lan address", "192.168.1.10:8730", "", true},
		{"all interfaces with token", "0.0.0.0:8730", "secret", false},
		{"empty host with token", ":8730", "secret", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckListen(tt.addr, tt.token)
			if tt.exposed {
				assert.ErrorIs(t, err, ErrExposedWithoutToken)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckListen_InvalidAddress(t *testing.T) {
	err := CheckListen("8730", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExposedWithoutToken)
	assert.Contains(t, err.Error(), "invalid listen address")
}
