package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/idna"

	"jobboard/internal/util"
)

// FlexibleTime accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
type FlexibleTime struct {
	time.Time
}

func (t *FlexibleTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", raw)
}

// Ptr returns nil for the zero time.
func (t *FlexibleTime) Ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// OptionalInt64 distinguishes an absent field from an explicit null.
// Set is true whenever the key appeared in the payload; Value is nil for null.
type OptionalInt64 struct {
	Set   bool
	Value *int64
}

// SetInt64 returns a present, non-null value.
func SetInt64(v int64) OptionalInt64 {
	return OptionalInt64{Set: true, Value: &v}
}

func (o *OptionalInt64) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// normalizeHTTPURL validates an absolute http(s) URL and rewrites its host
// to the ASCII (punycode) form.
func normalizeHTTPURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.User != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	host, err := idna.Lookup.ToASCII(u.Hostname())
	if err != nil || host == "" || !strings.Contains(host, ".") {
		return "", false
	}
	u.Scheme = scheme
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else {
		u.Host = host
	}
	return u.String(), true
}

func validID(id string) bool {
	return uuid.Validate(strings.TrimSpace(id)) == nil
}

const maxSlugBase = 60

func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
		if b.Len() >= maxSlugBase {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "job"
	}
	return slug
}

// newSlug appends a base36 millisecond stamp and a random suffix to the
// slugified title.
func newSlug(title string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", slugify(title), strconv.FormatInt(now.UnixMilli(), 36), util.NewID()[:6])
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
