package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-scripts/research/pkg/common"
)

// TokenKind is the kind of a document token
type TokenKind int

const (
	TokenHeading TokenKind = iota
	TokenParagraph
	TokenList
)

// Token is a heading, paragraph or list in document order
type Token struct {
	Kind  TokenKind
	Level int
	Text  string
}

// Tokens returns the headings, paragraphs and lists of doc in document order
func Tokens(doc *goquery.Document) []Token {
	var tokens []Token
	doc.Find("h1, h2, h3, h4, h5, h6, p, ul, ol").Each(func(_ int, s *goquery.Selection) {
		switch name := goquery.NodeName(s); name {
		case "p":
			tokens = append(tokens, Token{Kind: TokenParagraph, Text: common.CleanText(s.Text())})
		case "ul", "ol":
			text := strings.Join(listItems(s), "\n")
			if text == "" {
				text = common.CleanText(s.Text())
			}
			tokens = append(tokens, Token{Kind: TokenList, Text: text})
		default:
			tokens = append(tokens, Token{Kind: TokenHeading, Level: int(name[1] - '0'), Text: common.CleanText(s.Text())})
		}
	})
	return tokens
}

type sectionFold struct {
	done []common.Section
	open *common.Section
	body []string
}

func (f sectionFold) step(t Token) sectionFold {
	if t.Kind == TokenHeading {
		f = f.close()
		f.open = &common.Section{Heading: t.Text, Level: t.Level}
		return f
	}
	if f.open == nil {
		return f
	}
	if text := strings.TrimSpace(t.Text); text != "" {
		f.body = append(f.body, text)
	}
	return f
}

func (f sectionFold) close() sectionFold {
	if f.open != nil && len(f.body) > 0 {
		s := *f.open
		s.Content = strings.Join(f.body, "\n\n")
		f.done = append(f.done, s)
	}
	f.open = nil
	f.body = nil
	return f
}

// FoldSections partitions tokens into sections. A section opens at each
// heading and collects the following paragraphs and lists until the next
// heading. Sections without content are dropped, as is text before the first heading.
func FoldSections(tokens []Token) []common.Section {
	f := sectionFold{done: []common.Section{}}
	for _, t := range tokens {
		f = f.step(t)
	}
	return f.close().done
}
