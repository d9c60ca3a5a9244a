package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckFormat(t *testing.T) {
	cases := []struct {
		format Format
		value  string
		ok     bool
	}{
		{FormatEmail, "carol@example.com", true},
		{FormatEmail, "carol+tag@sub.example.co", true},
		{FormatEmail, "not-an-email", false},
		{FormatEmail, "@example.com", false},

		{FormatUrl, "https://example.com/path?q=1", true},
		{FormatUrl, "ftp://files.example.com", true},
		{FormatUrl, "example.com", false},
		{FormatUrl, "https://", false},

		{FormatPhone, "+14155552671", true},
		{FormatPhone, "(415) 555-2671", true},
		{FormatPhone, "4155552671", true},
		{FormatPhone, "call me", false},

		{FormatDate, "2026-08-24", true},
		{FormatDate, "2026-13-01", false},
		{FormatDate, "24/08/2026", false},

		{FormatDateTime, "2026-08-24T12:30:00Z", true},
		{FormatDateTime, "2026-08-24T12:30:00+01:00", true},
		{FormatDateTime, "2026-08-24T12:30:00", true},
		{FormatDateTime, "yesterday", false},

		{FormatUuid, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", true},
		{FormatUuid, "not-a-uuid", false},

		{FormatIpv4, "192.168.0.1", true},
		{FormatIpv4, "256.1.1.1", false},
		{FormatIpv4, "::1", false},

		{FormatIpv6, "::1", true},
		{FormatIpv6, "2001:db8::8a2e:370:7334", true},
		{FormatIpv6, "192.168.0.1", false},

		{FormatNone, "anything at all", true},
	}

	for _, c := range cases {
		assert.Equal(t, c.ok, CheckFormat(c.format, c.value),
			"%s %q", c.format, c.value)
	}
}
