package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// envRefRegex matches an escaped reference ($${...}) or a plain one (${...})
var envRefRegex = regexp.MustCompile(`\$\$\{[^}]*\}|\$\{([^}]*)\}`)

// SubstituteEnvVars replaces environment variable references in YAML content.
// Supported forms:
//   - ${VAR} - value of VAR, empty when unset
//   - ${VAR:-default} - default when VAR is empty or unset
//   - ${VAR:?message} - error when VAR is empty or unset
//   - $${VAR} - literal ${VAR}
//
// Every reference is substituted even when some required variables are missing;
// the errors for those are joined and returned with the partial result.
func SubstituteEnvVars(content string) (string, error) {
	var errs []error

	result := envRefRegex.ReplaceAllStringFunc(content, func(ref string) string {
		if strings.HasPrefix(ref, "$$") {
			return ref[1:]
		}

		expr := ref[2 : len(ref)-1]

		if name, msg, ok := strings.Cut(expr, ":?"); ok {
			name = strings.TrimSpace(name)
			if value := os.Getenv(name); value != "" {
				return value
			}
			msg = strings.TrimSpace(msg)
			if msg == "" {
				msg = fmt.Sprintf("required environment variable %s is not set", name)
			}
			errs = append(errs, errors.New(msg))
			return ""
		}

		if name, def, ok := strings.Cut(expr, ":-"); ok {
			if value := os.Getenv(strings.TrimSpace(name)); value != "" {
				return value
			}
			return strings.TrimSpace(def)
		}

		return os.Getenv(expr)
	})

	return result, errors.Join(errs...)
}
