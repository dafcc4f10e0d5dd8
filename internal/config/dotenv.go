package config

import (
	"bufio"
	"os"
	"strings"
)

// LoadDotenv reads a .env file and sets environment variables that are not already defined.
// Missing file is silently ignored. Existing env vars are never overridden.
func LoadDotenv(path string) error {
	return applyDotenv(path, false)
}

// ReloadDotenv is LoadDotenv with override: values from the file replace
// whatever is in the environment. Used when the gateway reloads its config.
func ReloadDotenv(path string) error {
	return applyDotenv(path, true)
}

func applyDotenv(path string, override bool) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := ParseDotenvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(key); set && !override {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ParseDotenvLine splits a KEY=VALUE line. Blank lines, comments and lines
// without '=' report false. An "export " prefix is accepted. Double quoted
// values understand \" and \\, single quoted values are literal, and
// unquoted values stop at " #".
func ParseDotenvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, value, ok = strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", false
	}
	value = strings.TrimSpace(value)

	switch {
	case len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"':
		r := strings.NewReplacer(`\"`, `"`, `\\`, `\`)
		value = r.Replace(value[1 : len(value)-1])
	case len(value) >= 2 && value[0] == '\'' && value[len(value)-1] == '\'':
		value = value[1 : len(value)-1]
	default:
		if i := strings.Index(value, " #"); i >= 0 {
			value = strings.TrimSpace(value[:i])
		}
	}
	return key, value, true
}

// QuoteDotenvValue renders v so that ParseDotenvLine reads it back unchanged.
func QuoteDotenvValue(v string) string {
	if !strings.ContainsAny(v, " \t\"'\\#$") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}
