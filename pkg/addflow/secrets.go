package addflow

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// secretPattern pairs a detection regex with its human-readable label,
// ported verbatim from add.rs's SECRET_PATTERNS.
type secretPattern struct {
	re    *regexp.Regexp
	label string
}

var secretPatterns = []secretPattern{
	{regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*['"]?[^\s'"]{3,}`), "Password"},
	{regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?[^\s'"]{8,}`), "API Key"},
	{regexp.MustCompile(`(?i)(secret[_-]?key|secret)\s*[:=]\s*['"]?[^\s'"]{8,}`), "Secret Key"},
	{regexp.MustCompile(`(?i)(access[_-]?token|token)\s*[:=]\s*['"]?[^\s'"]{8,}`), "Access Token"},
	{regexp.MustCompile(`(?i)(auth[_-]?token|bearer)\s*[:=]\s*['"]?[^\s'"]{8,}`), "Auth Token"},
	{regexp.MustCompile(`(?i)(client[_-]?secret)\s*[:=]\s*['"]?[^\s'"]{8,}`), "Client Secret"},
	{regexp.MustCompile(`(?i)(private[_-]?key)\s*[:=]`), "Private Key"},
	{regexp.MustCompile(`-----BEGIN (RSA |DSA |EC )?PRIVATE KEY-----`), "PEM Private Key"},
	{regexp.MustCompile(`(?i)(aws[_-]?access[_-]?key[_-]?id)\s*[:=]\s*['"]?[A-Z0-9]{20}`), "AWS Access Key"},
	{regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*['"]?[A-Za-z0-9/+=]{40}`), "AWS Secret Key"},
}

// highEntropyPattern finds long base64-alphabet runs worth an entropy check.
var highEntropyPattern = regexp.MustCompile(`[A-Za-z0-9+/=]{32,}`)

// filenameSecretMarkers are substrings in a filename that alone suggest
// a private key file, checked independently of content.
var filenameSecretMarkers = []string{
	"id_rsa", "id_dsa", "id_ecdsa", "id_ed25519",
	".pem", ".key", ".p12", ".pfx",
	"private-key", "privatekey",
}

const entropyThreshold = 4.5
const binarySniffLimit = 8000

// DetectSecrets scans filePath's name and content for plausible
// secrets (spec.md §4.5.6), returning one finding line per match. A nil
// slice means nothing was found. Binary content (any NUL byte in the
// first 8000 bytes) is never scanned beyond the filename check.
func DetectSecrets(filePath string, content []byte) []string {
	var findings []string

	name := filepath.Base(filePath)
	for _, marker := range filenameSecretMarkers {
		if strings.Contains(name, marker) {
			findings = append(findings, fmt.Sprintf("filename contains %q", marker))
			break
		}
	}

	sniff := content
	if len(sniff) > binarySniffLimit {
		sniff = sniff[:binarySniffLimit]
	}
	if bytes.Contains(sniff, []byte{0}) || !utf8.Valid(content) {
		return findings
	}

	text := string(content)
	for _, p := range secretPatterns {
		if p.re.MatchString(text) {
			findings = append(findings, fmt.Sprintf("contains %s", p.label))
		}
	}

	matches := highEntropyPattern.FindAllString(text, 5)
	for _, m := range matches {
		if shannonEntropy(m) > entropyThreshold {
			preview := m
			if len([]rune(preview)) > 32 {
				preview = string([]rune(preview)[:32])
			}
			findings = append(findings, fmt.Sprintf("high-entropy string (potential token): %s...", preview))
			break
		}
	}

	return findings
}

// shannonEntropy computes the Shannon entropy (bits per character) of s.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	for _, r := range s {
		counts[r]++
	}
	if len(counts) == 1 {
		return 0
	}

	length := float64(len(s))
	var entropy float64
	for _, count := range counts {
		p := float64(count) / length
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	return math.Max(entropy, 0)
}
