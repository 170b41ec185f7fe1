package classifier

import "strings"

// ExtractLinks возвращает все различные ссылки в порядке шаблонов, затем позиций.
// Совпадения, отличающиеся только регистром, считаются одной ссылкой.
func ExtractLinks(text string) []string {
	var links []string
	seen := make(map[string]struct{})
	for _, re := range linkPatterns {
		for _, m := range re.FindAllString(text, -1) {
			key := strings.ToLower(m)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			links = append(links, m)
		}
	}
	return links
}

// ContainsLink сообщает, есть ли в тексте хотя бы одна ссылка.
func ContainsLink(text string) bool {
	for _, re := range linkPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
