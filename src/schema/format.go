package schema

import (
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Format names a well-known string shape checked by a pure predicate.
type Format int

const (
	FormatNone Format = iota
	FormatEmail
	FormatUrl
	FormatPhone
	FormatDate
	FormatDateTime
	FormatUuid
	FormatIpv4
	FormatIpv6
)

func (f Format) String() string {
	switch f {
	case FormatEmail:
		return "email"
	case FormatUrl:
		return "url"
	case FormatPhone:
		return "phone"
	case FormatDate:
		return "date"
	case FormatDateTime:
		return "date-time"
	case FormatUuid:
		return "uuid"
	case FormatIpv4:
		return "ipv4"
	case FormatIpv6:
		return "ipv6"
	default:
		return "none"
	}
}

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)+$`)

var phonePatterns = []*regexp.Regexp{
	// E.164: +1234567890
	regexp.MustCompile(`^\+[1-9]\d{1,14}$`),
	// International with separators: +1-123-456-7890, +44 20 7946 0958
	regexp.MustCompile(`^\+[1-9][\d\s\-()]{1,18}\d$`),
	// US style: (123) 456-7890, 123-456-7890
	regexp.MustCompile(`^(\+1[\s\-]?)?\(?[2-9]\d{2}\)?[\s\-]?[2-9]\d{2}[\s\-]?\d{4}$`),
	// Bare digits, 10-15
	regexp.MustCompile(`^\d{10,15}$`),
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

// CheckFormat reports whether s conforms to the format. FormatNone always
// passes.
func CheckFormat(f Format, s string) bool {
	switch f {
	case FormatNone:
		return true
	case FormatEmail:
		return emailPattern.MatchString(s)
	case FormatUrl:
		u, err := url.Parse(s)
		return err == nil && u.Scheme != "" && u.Host != ""
	case FormatPhone:
		return checkPhone(s)
	case FormatDate:
		_, err := time.Parse("2006-01-02", s)
		return err == nil
	case FormatDateTime:
		for _, layout := range dateTimeLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return true
			}
		}
		return false
	case FormatUuid:
		_, err := uuid.Parse(s)
		return err == nil
	case FormatIpv4:
		ip := net.ParseIP(s)
		return ip != nil && ip.To4() != nil && strings.Count(s, ".") == 3
	case FormatIpv6:
		ip := net.ParseIP(s)
		return ip != nil && strings.Contains(s, ":")
	default:
		return false
	}
}

func checkPhone(s string) bool {
	for _, p := range phonePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	// Last resort: something that at least looks dialable.
	digits := 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case strings.ContainsRune("+-() .", c):
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}
