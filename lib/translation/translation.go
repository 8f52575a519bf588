package translation

import (
	"strings"

	"github.com/leonelquinteros/gotext"
)

const domain = "default"

// Configure loads the catalog of lang from dir. POSIX locale names such as
// en_US.UTF-8 are reduced to their language.
func Configure(dir, lang string) {
	lang = strings.ToLower(lang)
	if i := strings.IndexAny(lang, "_.-"); i > 0 {
		lang = lang[:i]
	}
	gotext.Configure(dir, lang, domain)
}

func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
