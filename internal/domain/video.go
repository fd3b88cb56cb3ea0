package domain

import (
	"strconv"
	"time"
)

// Token is the opaque capability string that grants read access to one video.
type Token string

// String returns the string representation of the Token.
func (t Token) String() string {
	return string(t)
}

// Valid reports whether the token only uses the filename-safe alphabet
// accepted in URLs ([A-Za-z0-9_-]).
func (t Token) Valid() bool {
	if t == "" {
		return false
	}
	for _, c := range t {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// Video is a registered file that is hosted until the process exits.
// Size and ModifiedAt are a snapshot taken at registration.
type Video struct {
	Token         Token
	FilePath      string
	FileName      string
	SizeBytes     int64
	ModifiedAt    time.Time
	Duration      *float64 // seconds, nil when unknown
	CreatedAt     time.Time
	DownloadCount int64
}

// HasDuration reports whether a positive duration was probed.
func (v *Video) HasDuration() bool {
	return v.Duration != nil && *v.Duration > 0
}

// DurationString formats the duration for headers, or "" when unknown.
func (v *Video) DurationString() string {
	if !v.HasDuration() {
		return ""
	}
	return strconv.FormatFloat(*v.Duration, 'f', -1, 64)
}

// ETag builds a weak validator from the file size and modification time in milliseconds.
func ETag(size int64, modTime time.Time) string {
	return `W/"` + strconv.FormatInt(size, 10) + "-" + strconv.FormatInt(modTime.UnixMilli(), 10) + `"`
}
