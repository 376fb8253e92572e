package i18n

// Server rendered pages
const (
	MsgTitleLogin    = "Login"
	MsgTitleError    = "Error"
	MsgTitlePages    = "Static pages"
	MsgTitleNewPage  = "New page"
	MsgTitleEditPage = "Edit page"

	MsgSessionExpired   = "Your session has expired. Please log in again."
	MsgLoginMissing     = "Enter your username and password."
	MsgLoginFailed      = "Login failed. Please try again."
	MsgSessionFailed    = "Could not create a session."
	MsgDatabaseError    = "Database error."
	MsgPageTitleTooLong = "The title may have at most %d characters."

	MsgPageCreated      = "The page has been created."
	MsgPageSaved        = "The page has been saved."
	MsgPageDeleted      = "The page has been deleted."
	MsgPageCreateFailed = "Could not create the page."
	MsgPageSaveFailed   = "Could not save the page."
	MsgPageDeleteFailed = "Could not delete the page."
)

var polishWeb = map[string]string{
	MsgTitleLogin:    "Logowanie",
	MsgTitleError:    "Błąd",
	MsgTitlePages:    "Strony statyczne",
	MsgTitleNewPage:  "Nowa strona",
	MsgTitleEditPage: "Edycja strony",

	MsgSessionExpired:   "Twoja sesja wygasła. Zaloguj się ponownie.",
	MsgLoginMissing:     "Podaj nazwę użytkownika i hasło.",
	MsgLoginFailed:      "Błąd logowania. Spróbuj ponownie.",
	MsgSessionFailed:    "Nie udało się utworzyć sesji.",
	MsgDatabaseError:    "Błąd bazy danych.",
	MsgPageTitleTooLong: "Tytuł może mieć najwyżej %d znaków.",

	MsgPageCreated:      "Strona została utworzona.",
	MsgPageSaved:        "Strona została zapisana.",
	MsgPageDeleted:      "Strona została usunięta.",
	MsgPageCreateFailed: "Nie udało się utworzyć strony.",
	MsgPageSaveFailed:   "Nie udało się zapisać strony.",
	MsgPageDeleteFailed: "Nie udało się usunąć strony.",

	// template labels, keyed by their English text
	"Offers":             "Oferty",
	"Organizations":      "Organizacje",
	"Pages":              "Strony",
	"Log in":             "Zaloguj",
	"Log out":            "Wyloguj",
	"Home page":          "Strona główna",
	"Username or e-mail": "Nazwa użytkownika lub e-mail",
	"Password":           "Hasło",
	"Latest offers":      "Najnowsze oferty",
	"All offers: %d":     "Wszystkich ofert: %d",
	"No current offers.": "Brak aktualnych ofert.",
	"Information":        "Informacje",
	"Title":              "Tytuł",
	"Content":            "Treść",
	"Author":             "Autor",
	"Published":          "Opublikowana",
	"Modified":           "Zmieniona",
	"yes":                "tak",
	"no":                 "nie",
	"Edit":               "Edytuj",
	"Delete":             "Usuń",
	"Save":               "Zapisz",
	"Cancel":             "Anuluj",
	"No pages.":          "Brak stron.",

	"Volunteering for everyone": "Wolontariat dla każdego",

	"Find an offer that suits you or publish an offer of your organization.": "Znajdź ofertę, która do Ciebie pasuje, albo opublikuj ofertę swojej organizacji.",
}
