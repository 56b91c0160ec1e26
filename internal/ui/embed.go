package ui

import (
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/carrierd/carrierd/internal/model"
)

// Templates embeds the HTML views served on the public routes.
//
//go:embed templates/*.html
var Templates embed.FS

var views = template.Must(template.New("").Funcs(template.FuncMap{
	"label": label,
}).ParseFS(Templates, "templates/*.html"))

// CarrierCard is the data the embeddable carrier card renders.
type CarrierCard struct {
	Carrier model.PublicCarrier
	Docking string
	Kind    string
}

// RenderCarrier writes the embeddable HTML card for c.
func RenderCarrier(w io.Writer, c model.PublicCarrier) error {
	return views.ExecuteTemplate(w, "carrier.html", CarrierCard{
		Carrier: c,
		Docking: choiceLabel(model.DockingAccessChoices, c.DockingAccess),
		Kind:    choiceLabel(model.CategoryChoices, c.Category),
	})
}

func choiceLabel(choices []model.Choice, value string) string {
	for _, ch := range choices {
		if ch.Value == value {
			return ch.Label
		}
	}
	return value
}

// label turns a service name like "VoucherRedemption" into "Voucher Redemption".
func label(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
