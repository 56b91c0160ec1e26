package apierr

import (
	"embed"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Success message IDs.
const (
	MsgJumpRecorded       = "jump_recorded"
	MsgJumpCancelled      = "jump_cancelled"
	MsgAccessUpdated      = "access_updated"
	MsgServiceActivated   = "service_activated"
	MsgServiceDeactivated = "service_deactivated"
	MsgCarrierDeleted     = "carrier_deleted"
)

// Catalog resolves message IDs to human-readable text and builds
// documentation references. The English text of a message is the stable
// anchor used in its reference link, regardless of the response language.
type Catalog struct {
	bundle  *i18n.Bundle
	english *i18n.Localizer
	docsURL string
}

// NewCatalog loads the embedded locale files. docsURL is the documentation
// site root that reference links point into.
func NewCatalog(docsURL string) (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(data, f.Name()); err != nil {
			return nil, err
		}
	}

	return &Catalog{
		bundle:  bundle,
		english: i18n.NewLocalizer(bundle, language.English.String()),
		docsURL: strings.TrimRight(docsURL, "/"),
	}, nil
}

// Text returns the message for id in the first of langs the catalog
// supports, falling back to English and finally to id itself.
func (c *Catalog) Text(id string, langs ...string) string {
	loc := c.english
	if len(langs) > 0 && langs[0] != "" {
		loc = i18n.NewLocalizer(c.bundle, langs...)
	}
	msg, err := loc.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil {
		return id
	}
	return msg
}

// Message returns the localized message for code.
func (c *Catalog) Message(code Code, langs ...string) string {
	return c.Text(code.MessageID, langs...)
}

// Reference returns the documentation link for code. Codes without a
// catalog entry link to the generic page for their status.
func (c *Catalog) Reference(code Code) string {
	english := c.Text(code.MessageID)
	if english == code.MessageID {
		status := code.Kind.Status()
		return c.errorLink("_" + strconv.Itoa(status) + "-" + Slug(http.StatusText(status)))
	}
	return c.errorLink(Slug(english))
}

// SuccessReference returns the documentation link for a success message.
func (c *Catalog) SuccessReference(id string) string {
	return c.docsURL + "/#/api/success/?id=" + Slug(c.Text(id))
}

func (c *Catalog) errorLink(slug string) string {
	return c.docsURL + "/#/api/errors/?id=" + slug
}

// Slug lower-cases s and joins its alphanumeric runs with hyphens.
func Slug(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
