// Package fingerprint derives stable device identifiers from client signals
// and scores login risk. It never fails a request: unparseable input degrades
// to fixed unknown sentinels so authentication flows are never blocked here.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

// Unknown is the sentinel for device attributes that could not be derived.
const Unknown = "unknown"

// DeviceInfo holds the normalized attributes parsed from a user agent.
type DeviceInfo struct {
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
	Model          string
}

// String returns a compact human-readable descriptor.
func (d DeviceInfo) String() string {
	return d.Browser + " " + d.BrowserVersion + " on " + d.OS + " " + d.OSVersion
}

var (
	browserPatterns = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"Edge", regexp.MustCompile(`Edg(?:e|A|iOS)?/([\d.]+)`)},
		{"Opera", regexp.MustCompile(`OPR/([\d.]+)`)},
		{"Chrome", regexp.MustCompile(`Chrome/([\d.]+)`)},
		{"Firefox", regexp.MustCompile(`Firefox/([\d.]+)`)},
		{"Safari", regexp.MustCompile(`Version/([\d.]+).*Safari`)},
	}
	osPatterns = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"Windows", regexp.MustCompile(`Windows NT ([\d.]+)`)},
		{"iOS", regexp.MustCompile(`(?:iPhone|iPad).*OS ([\d_]+)`)},
		{"macOS", regexp.MustCompile(`Mac OS X ([\d_.]+)`)},
		{"Android", regexp.MustCompile(`Android ([\d.]+)`)},
		{"Linux", regexp.MustCompile(`Linux`)},
	}
	modelPattern = regexp.MustCompile(`\(([^;)]+);`)
)

// ParseUserAgent extracts device attributes from a raw user agent string.
// Missing or malformed input yields unknown sentinels, never an error.
func ParseUserAgent(userAgent string) DeviceInfo {
	info := DeviceInfo{
		Browser:        Unknown,
		BrowserVersion: Unknown,
		OS:             Unknown,
		OSVersion:      Unknown,
		Model:          Unknown,
	}
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return info
	}

	for _, candidate := range browserPatterns {
		if match := candidate.re.FindStringSubmatch(userAgent); match != nil {
			info.Browser = candidate.name
			if len(match) > 1 && match[1] != "" {
				info.BrowserVersion = match[1]
			}
			break
		}
	}
	for _, candidate := range osPatterns {
		if match := candidate.re.FindStringSubmatch(userAgent); match != nil {
			info.OS = candidate.name
			if len(match) > 1 && match[1] != "" {
				info.OSVersion = strings.ReplaceAll(match[1], "_", ".")
			}
			break
		}
	}
	if match := modelPattern.FindStringSubmatch(userAgent); match != nil {
		model := strings.TrimSpace(match[1])
		if model != "" && !strings.HasPrefix(model, "Windows") && model != "X11" {
			info.Model = model
		}
	}
	return info
}

// Compute derives the deterministic fingerprint for a user agent plus any
// explicitly supplied signals (screen resolution, timezone, language).
// Identical normalized inputs always produce the identical hex digest.
func Compute(userAgent string, extraSignals map[string]string) string {
	info := ParseUserAgent(userAgent)

	attrs := map[string]string{
		"browser":         info.Browser,
		"browser_version": info.BrowserVersion,
		"os":              info.OS,
		"os_version":      info.OSVersion,
		"model":           info.Model,
	}
	for key, value := range extraSignals {
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		attrs[key] = value
	}

	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, key := range keys {
		if i > 0 {
			builder.WriteByte('|')
		}
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(attrs[key])
	}

	sum := sha256.Sum256([]byte(builder.String()))
	return hex.EncodeToString(sum[:])
}
