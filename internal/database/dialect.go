package database

import "strings"

// dialect holds the SQL that differs between the supported backends.
type dialect struct {
	// keywordClause matches content against the argument built by keywordPattern.
	keywordClause  string
	keywordPattern func(term string) string
	// notImageClause excludes rows whose content starts with imagePattern's
	// prefix. Both backends compare case-sensitively.
	notImageClause string
	imagePattern   string
}

var sqliteDialect = dialect{
	keywordClause:  "content GLOB ?",
	keywordPattern: func(term string) string { return "*" + escapeGlob(term) + "*" },
	notImageClause: "content NOT GLOB ?",
	imagePattern:   escapeGlob(ImageJPEGPrefix) + "*",
}

var postgresDialect = dialect{
	keywordClause:  `content LIKE ? ESCAPE '\'`,
	keywordPattern: func(term string) string { return "%" + escapeLike(term) + "%" },
	notImageClause: `content NOT LIKE ? ESCAPE '\'`,
	imagePattern:   escapeLike(ImageJPEGPrefix) + "%",
}

func dialectFor(driverName string) dialect {
	if driverName == "pgx" || driverName == "postgres" {
		return postgresDialect
	}
	return sqliteDialect
}

// escapeGlob makes GLOB metacharacters in term match literally.
func escapeGlob(term string) string {
	var b strings.Builder
	for _, r := range term {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeLike makes LIKE metacharacters in term match literally under ESCAPE '\'.
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}
