package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPasswordPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{name: "valid", password: "Abcdef1!", ok: true},
		{name: "valid all specials", password: "Aa1@$!%*?&", ok: true},
		{name: "too short", password: "Ab1!", ok: false},
		{name: "no uppercase", password: "abcdef1!", ok: false},
		{name: "no lowercase", password: "ABCDEF1!", ok: false},
		{name: "no digit", password: "Abcdefg!", ok: false},
		{name: "no special", password: "Abcdefg1", ok: false},
		{name: "disallowed character", password: "Abcdef1#", ok: false},
		{name: "space", password: "Abcdef 1!", ok: false},
		{name: "empty", password: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := checkPasswordPolicy(tt.password)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				assert.NotEmpty(t, msg)
			}
		})
	}
}
