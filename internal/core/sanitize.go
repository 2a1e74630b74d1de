package core

import "unicode"

// MaxCommentLength caps free-text comments before they reach storage.
const MaxCommentLength = 200

// SanitizeComment truncates a comment to MaxCommentLength characters and
// strips everything non-printable. Truncation happens first, so the result
// can only shrink further.
func SanitizeComment(comment string) string {
	runes := []rune(comment)
	if len(runes) > MaxCommentLength {
		runes = runes[:MaxCommentLength]
	}
	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		if unicode.IsPrint(r) {
			out = append(out, r)
		}
	}
	return string(out)
}
