package services

import (
	"context"
	"log"
	"strings"
	"unicode"
)

// NameResolver derives a human-readable business name from whatever signals
// are available. It never fails: when nothing usable exists the result is
// the empty string, which means "ask the user later". A generic placeholder
// is never fabricated.
type NameResolver interface {
	Resolve(ctx context.Context, explicitName, ownerUserID string) string
}

type nameResolver struct {
	directory UserDirectory
}

func NewNameResolver(directory UserDirectory) NameResolver {
	return &nameResolver{directory: directory}
}

func (r *nameResolver) Resolve(ctx context.Context, explicitName, ownerUserID string) string {
	if strings.TrimSpace(explicitName) != "" {
		return explicitName
	}

	if ownerUserID == "" || r.directory == nil {
		return ""
	}

	user, err := r.directory.FindUser(ctx, ownerUserID)
	if err != nil {
		log.Printf("WARN: directory lookup failed for %s: %v", ownerUserID, err)
		return ""
	}
	if user == nil {
		return ""
	}

	first := strings.TrimSpace(user.FirstName)
	last := strings.TrimSpace(user.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last + "'s Business"
	case first != "":
		return first + "'s Business"
	case last != "":
		return last + "'s Business"
	}

	if derived := deriveFromEmail(user.Email); derived != "" {
		return derived + "'s Business"
	}

	return ""
}

// deriveFromEmail takes the local part up to the first '.' or '@' and
// titlecases its first character: "grace.hopper@x.com" yields "Grace".
func deriveFromEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}

	end := strings.IndexAny(email, ".@")
	if end == 0 {
		return ""
	}
	if end > 0 {
		email = email[:end]
	}

	runes := []rune(email)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
