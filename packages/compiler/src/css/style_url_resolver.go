package css

import "regexp"

var urlWithSchemaRegexp = regexp.MustCompile(`^([^:/?#]+):`)

// IsStyleUrlResolvable reports whether a stylesheet URL would be inlined by
// the compiler: relative URLs and the package and asset schemes are,
// absolute URLs are not.
func IsStyleUrlResolvable(url string) bool {
	if url == "" || url[0] == '/' {
		return false
	}
	m := urlWithSchemaRegexp.FindStringSubmatch(url)
	return m == nil || m[1] == "package" || m[1] == "asset"
}
