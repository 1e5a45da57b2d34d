package dialogue

import "strings"

type textIntent int

const (
	intentChat textIntent = iota
	intentMenu
	intentMostOrdered
)

var mostOrderedPhrases = []string{
	"producto más pedido",
	"orden más pedida",
	"producto más vendido",
}

// detectTextIntent routes free text that can be answered without the model.
func detectTextIntent(text string) textIntent {
	m := strings.ToLower(text)
	if strings.Contains(m, "menú") {
		return intentMenu
	}
	if containsAny(m, mostOrderedPhrases) {
		return intentMostOrdered
	}
	return intentChat
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
