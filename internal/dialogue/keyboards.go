package dialogue

import (
	"fmt"

	"botmesero-backend/internal/models"
)

// Callback tokens.
const (
	TokenMenu             = "menu"
	TokenCategoryPrefix   = "category_"
	TokenProductPrefix    = "product_"
	TokenOrderHelp        = "pedido"
	TokenFAQ              = "otros"
	TokenDeliveryTime     = "tiempo_pedido"
	TokenMostOrdered      = "producto_mas_pedido"
	TokenWrongOrder       = "orden_mal"
	TokenAppWontOpen      = "app_no_abre"
	TokenAboutInfo        = "info_proporcionada"
	TokenReturnStart      = "return_start"
	TokenReturnFAQ        = "return_otros"
	TokenReturnCategories = "return_categories"
)

// FAQ leaves answered straight from the catalog, keyed by token. The
// template key is the token plus "_response".
var faqLeaves = map[string]bool{
	TokenDeliveryTime: true,
	TokenWrongOrder:   true,
	TokenAppWontOpen:  true,
	TokenAboutInfo:    true,
}

var (
	backToStart      = Button{Text: "Regresar al Inicio ↩", Data: TokenReturnStart}
	backToFAQ        = Button{Text: "Regresar a las Preguntas ↩", Data: TokenReturnFAQ}
	backToCategories = Button{Text: "Regresar a Categorías ↩", Data: TokenReturnCategories}
)

func mainMenuKeyboard() Keyboard {
	return Keyboard{
		{{Text: "Cuál es el menú de hoy 📋", Data: TokenMenu}},
		{{Text: "Cómo puedo realizar un pedido 📑❓", Data: TokenOrderHelp}},
		{{Text: "Preguntas acerca del Bot 🤖⁉", Data: TokenFAQ}},
	}
}

func faqKeyboard() Keyboard {
	return Keyboard{
		{{Text: "¿Cuánto tiempo demora en llegar mi pedido? ⏳", Data: TokenDeliveryTime}},
		{{Text: "¿Cuál es el producto más pedido de este establecimiento? 📊", Data: TokenMostOrdered}},
		{{Text: "Puse mal una orden ¿Qué puedo hacer? 😬❓", Data: TokenWrongOrder}},
		{{Text: "El aplicativo no abre. 😖", Data: TokenAppWontOpen}},
		{{Text: "Sobre la información Proporcionada 🤔:", Data: TokenAboutInfo}},
		{backToStart},
	}
}

func single(b Button) Keyboard {
	return Keyboard{{b}}
}

func categoriesKeyboard(categories []models.Category) Keyboard {
	kb := make(Keyboard, 0, len(categories)+1)
	for _, c := range categories {
		kb = append(kb, []Button{{Text: c.Name, Data: fmt.Sprintf("%s%d", TokenCategoryPrefix, c.ID)}})
	}
	return append(kb, []Button{backToStart})
}

func productsKeyboard(products []models.Product) Keyboard {
	kb := make(Keyboard, 0, len(products)+1)
	for _, p := range products {
		kb = append(kb, []Button{{
			Text: fmt.Sprintf("%s - $%s", p.Name, p.DisplayPrice()),
			Data: fmt.Sprintf("%s%d", TokenProductPrefix, p.ID),
		}})
	}
	return append(kb, []Button{backToCategories})
}
