package archive

import (
	"strings"

	"golang.org/x/net/html"
)

// attr legge un attributo; il secondo valore indica se era presente
func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// findElements restituisce gli elementi con il nome indicato in ordine di documento,
// senza scendere dentro gli elementi trovati
func findElements(root *html.Node, name string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == name {
			found = append(found, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

// descendants elenca gli elementi discendenti in ordine di documento.
// Non scende dentro i figli già restituiti che sono tw-passagedata.
func descendants(root *html.Node) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			found = append(found, c)
			if c.Data == elemPassageData || c.Data == elemStoryData {
				continue
			}
			walk(c)
		}
	}
	walk(root)
	return found
}

// textContent concatena tutti i nodi di testo sotto n
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
