package content

import (
	"encoding/json"
	"fmt"
)

// Типы частей контента на проводе. Сервер принимает ровно эти значения.
const (
	typeText        = "text"
	typeImageURL    = "image_url"
	typeImageBase64 = "image_base64"
)

// Part — закрытое объединение частей контента сообщения.
// Новые варианты добавляются только здесь, все потребители матчат исчерпывающе.
type Part interface{ isPart() }

// Text — текстовый фрагмент сообщения.
type Text struct {
	Text string
}

func (Text) isPart() {}

// ImageURL — изображение по внешней http/https ссылке.
type ImageURL struct {
	URL string
}

func (ImageURL) isPart() {}

// ImageBase64 — изображение, встроенное в сообщение как data URL
// (формат "data:image/...;base64,<данные>").
type ImageBase64 struct {
	Base64 string
}

func (ImageBase64) isPart() {}

// Parts сериализуется в проводной формат контента:
// {type:"text",text} | {type:"image_url",image_url:{url}} | {type:"image_base64",image_base64:{base64}}.
type Parts []Part

type wireImageURL struct {
	URL string `json:"url"`
}

type wireImageBase64 struct {
	Base64 string `json:"base64"`
}

type wirePart struct {
	Type        string           `json:"type"`
	Text        string           `json:"text,omitempty"`
	ImageURL    *wireImageURL    `json:"image_url,omitempty"`
	ImageBase64 *wireImageBase64 `json:"image_base64,omitempty"`
}

func (ps Parts) MarshalJSON() ([]byte, error) {
	wire := make([]wirePart, 0, len(ps))
	for _, p := range ps {
		switch v := p.(type) {
		case Text:
			wire = append(wire, wirePart{Type: typeText, Text: v.Text})
		case ImageURL:
			wire = append(wire, wirePart{Type: typeImageURL, ImageURL: &wireImageURL{URL: v.URL}})
		case ImageBase64:
			wire = append(wire, wirePart{Type: typeImageBase64, ImageBase64: &wireImageBase64{Base64: v.Base64}})
		default:
			return nil, fmt.Errorf("unknown content part type %T", p)
		}
	}
	return json.Marshal(wire)
}

func (ps *Parts) UnmarshalJSON(data []byte) error {
	var wire []wirePart
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	parts := make([]Part, 0, len(wire))
	for _, w := range wire {
		switch w.Type {
		case typeText:
			parts = append(parts, Text{Text: w.Text})
		case typeImageURL:
			if w.ImageURL == nil {
				return fmt.Errorf("content part %q without image_url payload", w.Type)
			}
			parts = append(parts, ImageURL{URL: w.ImageURL.URL})
		case typeImageBase64:
			if w.ImageBase64 == nil {
				return fmt.Errorf("content part %q without image_base64 payload", w.Type)
			}
			parts = append(parts, ImageBase64{Base64: w.ImageBase64.Base64})
		default:
			return fmt.Errorf("unknown content part type %q", w.Type)
		}
	}
	*ps = parts
	return nil
}
