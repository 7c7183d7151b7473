package sqlgen

import (
	"fmt"
	"strings"
)

const likeEscapeClause = "ESCAPE '\\'"

var likeReplacer = strings.NewReplacer(
	"\\", "\\\\",
	"%", "\\%",
	"_", "\\_",
)

func escapeLikePattern(value string) string {
	return likeReplacer.Replace(value)
}

func buildLikeComparison(columnName string, value string, prefixWildcard bool, suffixWildcard bool) (string, []any) {
	pattern := escapeLikePattern(value)
	if prefixWildcard {
		pattern = "%" + pattern
	}
	if suffixWildcard {
		pattern = pattern + "%"
	}
	return fmt.Sprintf("%s LIKE ? %s", columnName, likeEscapeClause), []any{pattern}
}

// quoteIdent quotes an identifier with double quotes, which sqlite and postgres
// both accept. Embedded double quotes are doubled.
func quoteIdent(ident string) string {
	if ident == "" {
		return ident
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
