package notion

import (
	"encoding/json"
	"fmt"
)

type PropertyType string

const (
	TypeNumber   PropertyType = "number"
	TypeTitle    PropertyType = "title"
	TypeRichText PropertyType = "rich_text"
	TypeDate     PropertyType = "date"
	TypeFiles    PropertyType = "files"
)

// MaxTextLength is the longest content a single rich text object may carry.
const MaxTextLength = 2000

// MaxRichTextItems is the maximum number of rich text objects in one property.
const MaxRichTextItems = 100

type TextContent struct {
	Content string `json:"content"`
}

type RichText struct {
	Type      string      `json:"type"`
	Text      TextContent `json:"text"`
	PlainText string      `json:"plain_text,omitempty"`
}

func newText(content string) RichText {
	return RichText{Type: "text", Text: TextContent{Content: content}}
}

type Date struct {
	Start string `json:"start"`
}

type ExternalFile struct {
	Url string `json:"url"`
}

type File struct {
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	External ExternalFile `json:"external"`
}

// PropertyValue is a typed database property value. A nil Number or Date is
// rendered as an explicit null, which clears the value remotely.
type PropertyValue struct {
	Type   PropertyType
	Number *float64
	Text   []RichText
	Date   *Date
	Files  []File
}

// Properties maps a property name to its value.
type Properties map[string]PropertyValue

func NumberProperty(n *float64) PropertyValue {
	return PropertyValue{Type: TypeNumber, Number: n}
}

func TitleProperty(content string) PropertyValue {
	p := PropertyValue{Type: TypeTitle, Text: []RichText{}}
	if content != "" {
		p.Text = append(p.Text, newText(content))
	}
	return p
}

// RichTextProperty creates a rich text property with one text object per chunk, in order.
func RichTextProperty(chunks ...string) PropertyValue {
	p := PropertyValue{Type: TypeRichText, Text: make([]RichText, 0, len(chunks))}
	for _, c := range chunks {
		p.Text = append(p.Text, newText(c))
	}
	return p
}

// DateProperty creates a date property, an empty start creates a null date.
func DateProperty(start string) PropertyValue {
	if start == "" {
		return PropertyValue{Type: TypeDate}
	}
	return PropertyValue{Type: TypeDate, Date: &Date{Start: start}}
}

func ExternalFileProperty(name, url string) PropertyValue {
	return PropertyValue{
		Type: TypeFiles,
		Files: []File{{
			Name:     name,
			Type:     "external",
			External: ExternalFile{Url: url},
		}},
	}
}

// PlainText joins the content of every text object.
func (p PropertyValue) PlainText() string {
	out := ""
	for _, t := range p.Text {
		if t.PlainText != "" {
			out += t.PlainText
			continue
		}
		out += t.Text.Content
	}
	return out
}

func (p PropertyValue) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case TypeNumber:
		return json.Marshal(map[string]any{"number": p.Number})
	case TypeTitle:
		text := p.Text
		if text == nil {
			text = []RichText{}
		}
		return json.Marshal(map[string]any{"title": text})
	case TypeRichText:
		text := p.Text
		if text == nil {
			text = []RichText{}
		}
		return json.Marshal(map[string]any{"rich_text": text})
	case TypeDate:
		return json.Marshal(map[string]any{"date": p.Date})
	case TypeFiles:
		files := p.Files
		if files == nil {
			files = []File{}
		}
		return json.Marshal(map[string]any{"files": files})
	}
	return nil, fmt.Errorf("unknown property type %q", p.Type)
}

func (p *PropertyValue) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type     PropertyType `json:"type"`
		Number   *float64     `json:"number"`
		Title    []RichText   `json:"title"`
		RichText []RichText   `json:"rich_text"`
		Date     *Date        `json:"date"`
		Files    []File       `json:"files"`
	}
	err := json.Unmarshal(data, &aux)
	if err != nil {
		return err
	}
	*p = PropertyValue{
		Type:   aux.Type,
		Number: aux.Number,
		Date:   aux.Date,
		Files:  aux.Files,
	}
	switch aux.Type {
	case TypeTitle:
		p.Text = aux.Title
	case TypeRichText:
		p.Text = aux.RichText
	}
	return nil
}

// Page is a database row as returned by a query.
type Page struct {
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`
}

// QueryPage is one page of query results.
type QueryPage struct {
	Results    []Page `json:"results"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}
