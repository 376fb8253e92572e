// Package i18n holds the user facing message catalog and language negotiation.
// Messages are keyed by their English text; Polish is the default language.
package i18n

import (
	"fmt"
	"log"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys
const (
	MsgRequired        = "This field is required."
	MsgBlank           = "This field may not be blank."
	MsgInvalidString   = "Not a valid string."
	MsgMaxLength       = "Ensure this field has no more than %d characters."
	MsgInvalidChoice   = "\"%s\" is not a valid choice."
	MsgInvalidInteger  = "A valid integer is required."
	MsgMinValue        = "Ensure this value is greater than or equal to %d."
	MsgInvalidBoolean  = "Must be a valid boolean."
	MsgInvalidDatetime = "Datetime has wrong format."
	MsgInvalidPK       = "Invalid pk \"%s\" - object does not exist."
	MsgNotMember       = "You are not a member of organization \"%s\"."

	MsgInvalidToken     = "Invalid token."
	MsgNotAuthorized    = "Authentication credentials were not provided."
	MsgNotFound         = "Not found."
	MsgBadCredentials   = "Unable to log in with provided credentials."
	MsgLockedOut        = "Too many failed login attempts. Try again later."
	MsgLoggedOut        = "Successfully logged out."
	MsgMethodNotAllowed = "Method \"%s\" not allowed."
	MsgParseError       = "Malformed request body: %s"

	MsgAdminCannotCreate = "Administrators cannot create new offers."
	MsgNoOrganization    = "You have no organization on volontuloapp.org yet."
	MsgEditForbidden     = "User cannot edit the selected offer."
	MsgAlreadyApplied    = "You have already applied for this offer."
	MsgApplicationSent   = "Your application has been sent."
)

var polish = map[string]string{
	MsgRequired:        "To pole jest wymagane.",
	MsgBlank:           "To pole nie może być puste.",
	MsgInvalidString:   "Niepoprawny ciąg znaków.",
	MsgMaxLength:       "Upewnij się, że pole ma nie więcej niż %d znaków.",
	MsgInvalidChoice:   "\"%s\" nie jest poprawnym wyborem.",
	MsgInvalidInteger:  "Wymagana liczba całkowita.",
	MsgMinValue:        "Upewnij się, że ta wartość jest większa lub równa %d.",
	MsgInvalidBoolean:  "Wymagana poprawna wartość logiczna.",
	MsgInvalidDatetime: "Błędny format daty i czasu.",
	MsgInvalidPK:       "Niepoprawny klucz główny \"%s\" - obiekt nie istnieje.",
	MsgNotMember:       "Nie jesteś członkiem organizacji \"%s\".",

	MsgInvalidToken:     "Niepoprawny token.",
	MsgNotAuthorized:    "Nie podano danych uwierzytelniających.",
	MsgNotFound:         "Nie znaleziono.",
	MsgBadCredentials:   "Podane dane uwierzytelniające nie pozwalają na zalogowanie.",
	MsgLockedOut:        "Zbyt wiele nieudanych prób logowania. Spróbuj ponownie później.",
	MsgMethodNotAllowed: "Metoda \"%s\" niedozwolona.",
	MsgParseError:       "Błędna treść żądania: %s",

	MsgAdminCannotCreate: "Administrator nie może tworzyć nowych ofert.",
	MsgNoOrganization:    "Nie masz jeszcze żadnej założonej organizacji na volontuloapp.org.",
	MsgEditForbidden:     "Użytkownik nie może edytować wybranej oferty.",
	MsgAlreadyApplied:    "Już wyraziłeś chęć uczestnictwa w tej ofercie.",
	MsgApplicationSent:   "Zgłoszenie chęci uczestnictwa zostało wysłane.",
}

// Supported lists the languages with a catalog, in preference order
var Supported = []language.Tag{language.Polish, language.English}

// Translator renders catalog messages for a negotiated language
type Translator struct {
	def      language.Tag
	matcher  language.Matcher
	cat      catalog.Catalog
	mux      sync.RWMutex
	printers map[language.Tag]*message.Printer
}

// New builds the catalog. defaultLang is used when a request states no preference.
func New(defaultLang string) (*Translator, error) {
	def, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", defaultLang, err)
	}
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, messages := range []map[string]string{polish, polishWeb} {
		for key, msg := range messages {
			if err := b.SetString(language.Polish, key, msg); err != nil {
				return nil, fmt.Errorf("failed to add message %q: %w", key, err)
			}
		}
	}
	t := &Translator{
		matcher:  language.NewMatcher(Supported),
		cat:      b,
		printers: make(map[language.Tag]*message.Printer),
	}
	t.def = t.supported(def)
	log.Printf("[I18N] catalog loaded: %d messages, default language %s", len(polish)+len(polishWeb), t.def)
	return t, nil
}

// Default returns the fallback language
func (t *Translator) Default() language.Tag {
	return t.def
}

// Match picks a supported language for an Accept-Language header value
func (t *Translator) Match(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return t.def
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.def
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return t.def
	}
	return Supported[idx]
}

func (t *Translator) supported(tag language.Tag) language.Tag {
	_, idx, conf := t.matcher.Match(tag)
	if conf == language.No {
		return Supported[0]
	}
	return Supported[idx]
}

func (t *Translator) printer(tag language.Tag) *message.Printer {
	t.mux.RLock()
	p, ok := t.printers[tag]
	t.mux.RUnlock()
	if ok {
		return p
	}
	t.mux.Lock()
	defer t.mux.Unlock()
	if p, ok = t.printers[tag]; !ok {
		p = message.NewPrinter(tag, message.Catalog(t.cat))
		t.printers[tag] = p
	}
	return p
}

// T formats the message key in the given language
func (t *Translator) T(tag language.Tag, key string, args ...interface{}) string {
	return t.printer(tag).Sprintf(key, args...)
}
