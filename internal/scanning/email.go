package scanning

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/htmlindex"
)

// EmailText reads an RFC 822 message and returns its headers of interest
// followed by the body. Plain text parts are preferred over HTML.
func EmailText(data []byte) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("reading email: %w", err)
	}

	body, err := emailBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return "", err
	}

	var content strings.Builder
	for _, name := range []string{"Subject", "From", "Date"} {
		if value := decodeHeader(msg.Header.Get(name)); value != "" {
			content.WriteString(name + ": " + value + "\n")
		}
	}
	content.WriteString("\n")
	content.WriteString(body)

	return cleanText(content.String())
}

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// decodeHeader decodes RFC 2047 encoded headers
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	decoded, err := wordDecoder.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// charsetReader decodes legacy charsets such as EUC-KR to UTF-8
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// emailBody extracts text from one MIME entity, recursing into multiparts
func emailBody(contentType, transferEncoding string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, params = "text/plain", nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartBody(r, params["boundary"])
	}
	if mediaType != "text/plain" && mediaType != "text/html" {
		return "", nil
	}

	raw, err := io.ReadAll(decodeTransfer(transferEncoding, r))
	if err != nil {
		return "", fmt.Errorf("reading email body: %w", err)
	}
	text, err := toUTF8(raw, params["charset"])
	if err != nil {
		return "", err
	}
	if mediaType == "text/html" {
		return htmlText(text), nil
	}
	return text, nil
}

func multipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		partType := part.Header.Get("Content-Type")
		mediaType, _, _ := mime.ParseMediaType(partType)
		// NextPart already undoes quoted-printable and drops the header
		text, err := emailBody(partType, part.Header.Get("Content-Transfer-Encoding"), part)
		part.Close()
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}

		if mediaType == "text/html" {
			htmlParts = append(htmlParts, text)
		} else {
			textParts = append(textParts, text)
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	return strings.Join(htmlParts, "\n"), nil
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	}
	return r
}

func toUTF8(raw []byte, charset string) (string, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "us-ascii" {
		return string(raw), nil
	}
	r, err := charsetReader(charset, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decoding %s body: %w", charset, err)
	}
	return string(decoded), nil
}

// blockElements end a line of text when they close
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "table": true,
}

// htmlText returns the visible text of an HTML document, one block per line
func htmlText(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return doc
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "head") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteString(" ")
				}
				b.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteString("\n")
		}
	}
	walk(root)

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
