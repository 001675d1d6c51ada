package services

import (
	"fmt"
	"html"
	"strings"
)

// Links bundles the share formats returned after an upload.
type Links struct {
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
	BBCode   string `json:"bbcode"`
}

// urlEscapes covers characters that break markdown/plain links when left
// raw in a path segment. Standard query escaping is too aggressive here
// (it would mangle the visible filename), so only the troublemakers go.
var urlEscapes = map[rune]string{
	'(':  "%28",
	')':  "%29",
	'[':  "%5B",
	']':  "%5D",
	'<':  "%3C",
	'>':  "%3E",
	'"':  "%22",
	'\'': "%27",
	'\\': "%5C",
	'#':  "%23",
	'|':  "%7C",
	'`':  "%60",
	' ':  "%20",
}

func escapePath(p string) string {
	var b strings.Builder
	for _, r := range p {
		if esc, ok := urlEscapes[r]; ok {
			b.WriteString(esc)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BuildLinks renders every share format for an uploaded file. remotePath is
// the path inside the backing store; the public URL strips the "public/"
// prefix because the static site serves from that directory.
func BuildLinks(siteURL, remotePath, filename string) *Links {
	servePath := strings.TrimPrefix(remotePath, "public/")
	url := strings.TrimRight(siteURL, "/") + "/" + escapePath(servePath)

	return &Links{
		URL:      url,
		Markdown: fmt.Sprintf("![%s](%s)", filename, url),
		HTML:     fmt.Sprintf(`<img src="%s" alt="%s">`, url, html.EscapeString(filename)),
		BBCode:   fmt.Sprintf("[img]%s[/img]", url),
	}
}
