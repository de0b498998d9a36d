package assistant

import "regexp"

// citationPattern matches backend-injected source annotations such as 【4:0†source】.
// The match is lossy: a literal 【 ... 】 span in genuine assistant text is removed too.
var citationPattern = regexp.MustCompile(`【[^】]*】`)

// StripCitations removes citation spans and leaves the surrounding text untouched.
func StripCitations(text string) string {
	return citationPattern.ReplaceAllString(text, "")
}
