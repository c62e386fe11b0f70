package xmlparse

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"sppd/internal/errs"
)

// atomLeaf names which Atom header field a <id>/<title>/<summary>/<updated>
// start tag is currently feeding.
type atomLeaf int

const (
	leafNone atomLeaf = iota
	leafID
	leafTitle
	leafSummary
	leafUpdated
)

// ParseFile reads path and parses every Atom <entry> in it.
func ParseFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.IoError{Op: "read " + path, Err: err}
	}
	return ParseBytes(data, path)
}

// ParseBytes parses a single Atom/XML document, returning every well-formed
// <entry> it contains as an Entry. source is used only for error context.
func ParseBytes(data []byte, source string) ([]Entry, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var entries []Entry
	var insideEntry bool
	var current *Entry
	var leaf atomLeaf

	var scopeActive bool
	var sc *scope
	var cfsStartOffset int64
	var sawCFSThisEntry bool

	for {
		offsetBefore := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &errs.ParseError{Source: source, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local

			if scopeActive {
				if local == "ContractFolderStatus" {
					return nil, &errs.ParseError{Source: source, Err: fmt.Errorf("duplicate ContractFolderStatus in entry")}
				}
				sc.depth++
				sc.enterElement(local, attrMap(t.Attr))
				continue
			}

			if !insideEntry {
				if local == "entry" {
					insideEntry = true
					current = &Entry{}
					leaf = leafNone
					sawCFSThisEntry = false
				}
				continue
			}

			switch local {
			case "id":
				leaf = leafID
			case "title":
				leaf = leafTitle
			case "summary":
				leaf = leafSummary
			case "updated":
				leaf = leafUpdated
			case "link":
				leaf = leafNone
				if href := attrValue(t.Attr, "href"); href != "" {
					current.Link = strPtr(href)
				}
			case "ContractFolderStatus":
				if sawCFSThisEntry {
					return nil, &errs.ParseError{Source: source, Err: fmt.Errorf("duplicate ContractFolderStatus in entry")}
				}
				sawCFSThisEntry = true
				scopeActive = true
				sc = newScope(current)
				cfsStartOffset = offsetBefore
			default:
				leaf = leafNone
			}

		case xml.EndElement:
			local := t.Name.Local

			if scopeActive {
				if local == "ContractFolderStatus" && sc.depth == 0 {
					raw := data[cfsStartOffset:dec.InputOffset()]
					if !utf8.Valid(raw) {
						return nil, &errs.ParseError{Source: source, Err: fmt.Errorf("invalid UTF-8 in ContractFolderStatus subtree")}
					}
					current.CFSRawXML = strPtr(string(raw))
					scopeActive = false
					sc = nil
					continue
				}
				if err := sc.exitElement(local); err != nil {
					return nil, err
				}
				sc.depth--
				if sc.depth < 0 {
					return nil, &errs.ParseError{Source: source, Err: fmt.Errorf("scope depth underflow")}
				}
				continue
			}

			if insideEntry {
				switch local {
				case "id", "title", "summary", "updated", "link":
					leaf = leafNone
				case "entry":
					if current.ID != nil || current.Title != nil {
						entries = append(entries, *current)
					}
					insideEntry = false
					current = nil
				}
			}

		case xml.CharData:
			text := string(t)
			if scopeActive {
				if !utf8.ValidString(text) {
					return nil, &errs.ParseError{Source: source, Err: fmt.Errorf("invalid UTF-8 in captured text")}
				}
				sc.text(text)
				continue
			}
			if insideEntry {
				applyAtomLeaf(current, leaf, text)
			}
		}
	}

	return entries, nil
}

// applyAtomLeaf appends text to the Atom header field currently selected
// by leaf; id is post-processed by splitting on '/' and keeping the last
// non-empty segment.
func applyAtomLeaf(e *Entry, leaf atomLeaf, text string) {
	switch leaf {
	case leafID:
		segments := strings.Split(text, "/")
		last := ""
		for _, s := range segments {
			if s != "" {
				last = s
			}
		}
		if last != "" {
			e.ID = strPtr(last)
		}
	case leafTitle:
		appendToPtr(&e.Title, text)
	case leafSummary:
		appendToPtr(&e.Summary, text)
	case leafUpdated:
		appendToPtr(&e.Updated, text)
	}
}

func appendToPtr(field **string, text string) {
	if *field == nil {
		v := text
		*field = &v
		return
	}
	joined := **field + text
	*field = &joined
}

func attrValue(attrs []xml.Attr, local string) string {
	for _, a := range attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}
