package db

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern lowercases term, escapes LIKE wildcards and wraps it for a
// substring match. Queries must use `ESCAPE '\'`. Blank input yields "".
func LikePattern(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(term) + "%"
}
