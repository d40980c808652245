package markdown

import (
	"bytes"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// MaxMessageLength bounds sender messages shown on share pages.
const MaxMessageLength = 2000

// Parser renders untrusted sender messages. Raw HTML in the source is
// dropped because goldmark is not configured WithUnsafe.
type Parser struct {
	md goldmark.Markdown
}

func NewParser() *Parser {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Strikethrough,
			extension.Linkify,
			extension.Typographer,
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
			goldmarkhtml.WithXHTML(),
		),
	)

	return &Parser{
		md: md,
	}
}

func (p *Parser) Parse(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	err := p.md.Convert(source, &buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Message renders a sender message, or returns "" for an empty one.
func (p *Parser) Message(message string) (string, error) {
	if message == "" {
		return "", nil
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		message = string([]rune(message)[:MaxMessageLength])
	}
	out, err := p.Parse([]byte(message))
	if err != nil {
		return "", err
	}
	return string(out), nil
}
