package decoder

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// symbolElement is one <symbol> from zbar's XML output. Binary payloads are
// delivered base64 encoded with format="base64" on <data>.
type symbolElement struct {
	Type string `xml:"type,attr"`
	Data struct {
		Encoding string `xml:"format,attr"`
		Text     string `xml:",chardata"`
	} `xml:"data"`
}

func (s symbolElement) payload() (string, bool) {
	text := s.Data.Text
	if strings.EqualFold(s.Data.Encoding, "base64") {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return "", false
		}
		text = string(raw)
	}
	return text, text != ""
}

// ParseSymbols reads zbar XML from r and calls emit once per decoded symbol.
// Payloads are taken verbatim from <data>, so multi-line codes (vCards, Wi-Fi
// configs) arrive as a single event. A document cut short by the decoder
// exiting is not an error.
func ParseSymbols(r io.Reader, emit func(payload, format string)) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			if truncated(err) {
				return nil
			}
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "symbol" {
			continue
		}
		var sym symbolElement
		if err := dec.DecodeElement(&sym, &start); err != nil {
			if truncated(err) {
				return nil
			}
			return err
		}
		if payload, ok := sym.payload(); ok {
			emit(payload, NormalizeFormat(sym.Type))
		}
	}
}

func truncated(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var syntax *xml.SyntaxError
	return errors.As(err, &syntax) && syntax.Msg == "unexpected EOF"
}
