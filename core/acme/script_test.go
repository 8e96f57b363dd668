package acme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewScriptArgs(t *testing.T) {
	tests := []struct {
		name string
		ch   AuthorizationChallenge
		want scriptArgs
	}{
		{
			name: "apex",
			ch:   AuthorizationChallenge{Domain: "example.com", DNSRecordValue: "v1"},
			want: scriptArgs{
				FullRecord: "_acme-challenge.example.com",
				Subject:    "example.com",
				Domain:     "example.com",
				Record:     "_acme-challenge",
				Value:      "v1",
			},
		},
		{
			name: "subdomain",
			ch:   AuthorizationChallenge{Domain: "api.staging.example.com", DNSRecordValue: "v2"},
			want: scriptArgs{
				FullRecord: "_acme-challenge.api.staging.example.com",
				Subject:    "api.staging.example.com",
				Domain:     "example.com",
				Record:     "_acme-challenge.api.staging",
				Value:      "v2",
			},
		},
		{
			name: "wildcard",
			ch:   AuthorizationChallenge{Domain: "*.example.com", DNSRecordValue: "v3"},
			want: scriptArgs{
				FullRecord: "_acme-challenge.example.com",
				Subject:    "*.example.com",
				Domain:     "example.com",
				Record:     "_acme-challenge",
				Value:      "v3",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newScriptArgs(tt.ch))
		})
	}
}

func TestScriptArgsApply(t *testing.T) {
	args := scriptArgs{
		FullRecord: "_acme-challenge.www.example.com",
		Subject:    "www.example.com",
		Domain:     "example.com",
		Record:     "_acme-challenge.www",
		Value:      "txt-value",
	}

	got := args.apply("update {{Domain}} txt {{Record}} {{Value}} # {{FullRecord}} for {{Subject}}")
	assert.Equal(t, "update example.com txt _acme-challenge.www txt-value # _acme-challenge.www.example.com for www.example.com", got)

	assert.Equal(t, "no placeholders", args.apply("no placeholders"))
}
