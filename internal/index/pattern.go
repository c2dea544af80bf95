package index

import "strings"

// globToLike translates a glob pattern ('*' and '?' wildcards) into a SQL
// LIKE pattern. LIKE metacharacters already present in the input are escaped
// with '\' so they match literally; queries using the result must declare
// ESCAPE '\'.
func globToLike(glob string) string {
	var sb strings.Builder
	sb.Grow(len(glob))
	for _, r := range glob {
		switch r {
		case '*':
			sb.WriteByte('%')
		case '?':
			sb.WriteByte('_')
		case '%', '_', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
