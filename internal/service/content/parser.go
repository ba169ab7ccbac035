package content

import (
	"regexp"
	"strings"
)

// Маркер вида [Image Link: <токен>] либо голая http(s)-ссылка на файл изображения.
// Альтернативы в одном выражении, чтобы сохранить порядок появления слева направо.
var imageRefPattern = regexp.MustCompile(
	`(?i)\[image link:\s*([^\]]*?)\s*\]|https?://[^\s\[\]]+?\.(?:png|jpe?g|gif|bmp|webp|svg)\b`,
)

// Parse разбирает введённый текст на видимую часть и ссылки на изображения.
// Маркер [Image Link: ...] вырезается из текста всегда; ссылка из него попадает
// в результат только со схемой http/https, остальные схемы молча отбрасываются.
// Голые ссылки на изображения вырезаются и извлекаются все.
// Возвращает обрезанный по пробелам остаток текста ("" — текста не осталось)
// и список ImageURL в порядке появления. Чистая функция.
func Parse(raw string) (string, []Part) {
	matches := imageRefPattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(raw), nil
	}

	var images []Part
	var visible strings.Builder
	last := 0
	for _, m := range matches {
		visible.WriteString(raw[last:m[0]])
		last = m[1]

		if m[2] >= 0 {
			// Форма с маркером: группа 1 — токен внутри скобок
			token := strings.TrimSpace(raw[m[2]:m[3]])
			if hasHTTPScheme(token) {
				images = append(images, ImageURL{URL: token})
			}
			continue
		}
		// Голая ссылка: совпадение целиком
		images = append(images, ImageURL{URL: raw[m[0]:m[1]]})
	}
	visible.WriteString(raw[last:])

	return strings.TrimSpace(visible.String()), images
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
