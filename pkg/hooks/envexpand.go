package hooks

import "strings"

// ExpandEnvVars substitutes ${VAR} references in input against env,
// leaving any unresolved reference untouched (spec.md §4.5.4's
// "expansion against the hook-runner's own env map").
func ExpandEnvVars(input string, env map[string]string) string {
	if !strings.Contains(input, "${") {
		return input
	}

	var out strings.Builder
	i := 0
	for i < len(input) {
		if input[i] == '$' && i+1 < len(input) && input[i+1] == '{' {
			close := strings.IndexByte(input[i+2:], '}')
			if close < 0 {
				out.WriteString(input[i:])
				break
			}
			name := input[i+2 : i+2+close]
			if v, ok := env[name]; ok {
				out.WriteString(v)
			} else {
				out.WriteString(input[i : i+2+close+1])
			}
			i = i + 2 + close + 1
			continue
		}
		out.WriteByte(input[i])
		i++
	}
	return out.String()
}
