package header

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// DefaultSentinels name aggregate/bound constants that are never real codes.
var DefaultSentinels = []string{"ALL", "MAX"}

// Constants maps a numeric code to its symbolic name.
type Constants map[int]string

// Name returns the symbolic name for code or UNKNOWN(<code>).
func (c Constants) Name(code int) string {
	if name, ok := c[code]; ok {
		return name
	}
	return "UNKNOWN(" + strconv.Itoa(code) + ")"
}

// Code is the reverse of Name. Names are matched exactly, or as
// UNKNOWN(<code>) so rendered entries can be written back.
func (c Constants) Code(name string) (int, bool) {
	for code, n := range c {
		if n == name {
			return code, true
		}
	}
	if inner, ok := strings.CutPrefix(name, "UNKNOWN("); ok {
		if digits, ok := strings.CutSuffix(inner, ")"); ok {
			if code, err := strconv.Atoi(digits); err == nil && code >= 0 {
				return code, true
			}
		}
	}
	return 0, false
}

func constantPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^\s*#define\s+` + regexp.QuoteMeta(prefix) + `([A-Za-z0-9_]+)\s+\((\d+)[Uu]?\)`)
}

// ParseConstants collects `#define <prefix><NAME> (<digits>[U])` lines.
// Lines that do not match are skipped; on duplicate codes the last line wins.
func ParseConstants(src, prefix string, sentinels []string) Constants {
	re := constantPattern(prefix)
	out := make(Constants)
	sc := bufio.NewScanner(strings.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		m := re.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		name := m[1]
		if isSentinel(name, sentinels) {
			continue
		}
		code, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out[code] = name
	}
	return out
}

func isSentinel(name string, sentinels []string) bool {
	for _, s := range sentinels {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}
