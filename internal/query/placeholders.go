package query

import (
	"regexp"

	models "infinite-experiment/plp/internal/models/gorm"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*(id|username|email|idnumber)\s*\}\}`)

// Substitute replaces each recognised {{token}} with a ? marker and returns
// the subject's value for every occurrence, in order.
func Substitute(query string, subject *models.User) (string, []any) {
	var params []any
	out := placeholderRe.ReplaceAllStringFunc(query, func(m string) string {
		token := placeholderRe.FindStringSubmatch(m)[1]
		params = append(params, userAttribute(subject, token))
		return "?"
	})
	return out, params
}

func userAttribute(u *models.User, token string) any {
	switch token {
	case "id":
		return u.ID
	case "username":
		return u.Username
	case "email":
		return u.Email
	default:
		return u.IDNumber
	}
}
