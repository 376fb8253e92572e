package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volontulo/go-volontulo/internal/models"
)

func createOfferForm(orgID int64) url.Values {
	return url.Values{
		"title":           {"API created offer"},
		"time_commitment": {"API time commitment"},
		"benefits":        {"API benefits"},
		"location":        {"API location"},
		"description":     {"API description"},
		"organization":    {fmt.Sprint(orgID)},
	}
}

func joinForm() url.Values {
	return url.Values{
		"email":    {"organization2@example.com"},
		"phone_no": {"123"},
		"fullname": {"Organization 2 User"},
		"comments": {"This is a comment"},
	}
}

func TestOrganizationsList(t *testing.T) {
	f := newFixture(t)

	w := f.get("/api/organizations.json")
	require.Equal(t, http.StatusOK, w.Code)
	expected := fmt.Sprintf(`[
		{"url": "http://testserver/api/organizations/%[1]d.json", "id": %[1]d,
		 "name": "Organization 1", "address": "Organization 1 address", "description": "Organization 1 description"},
		{"url": "http://testserver/api/organizations/%[2]d.json", "id": %[2]d,
		 "name": "Organization 2", "address": "", "description": ""}]`, f.org1.ID, f.org2.ID)
	assert.JSONEq(t, expected, w.Body.String())

	// trailing slash style links outside of .json requests
	w = f.get("/api/organizations/")
	list := decodeList(t, w)
	require.Len(t, list, 2)
	assert.Equal(t, fmt.Sprintf("http://testserver/api/organizations/%d/", f.org1.ID), list[0]["url"])
}

func TestOrganizationDetails(t *testing.T) {
	f := newFixture(t)

	w := f.get(fmt.Sprintf("/api/organizations/%d.json", f.org1.ID))
	require.Equal(t, http.StatusOK, w.Code)
	expected := fmt.Sprintf(`{"url": "http://testserver/api/organizations/%[1]d.json", "id": %[1]d,
		"name": "Organization 1", "address": "Organization 1 address", "description": "Organization 1 description"}`, f.org1.ID)
	assert.JSONEq(t, expected, w.Body.String())

	w = f.get("/api/organizations/9999/")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Nie znaleziono.", decode(t, w)["detail"])

	w = f.get("/api/organizations/abc/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserProfiles(t *testing.T) {
	f := newFixture(t)

	w := f.get("/api/users_profiles.json")
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeList(t, w)
	require.Len(t, list, 5)

	w = f.get(fmt.Sprintf("/api/users_profiles/%d.json", f.organization2.ID))
	require.Equal(t, http.StatusOK, w.Code)
	expected := fmt.Sprintf(`{
		"id": %[1]d,
		"images": [],
		"is_administrator": false,
		"organizations": [{"address": "", "description": "", "id": %[2]d, "name": "Organization 2",
			"url": "http://testserver/api/organizations/%[2]d.json"}],
		"phone_no": "",
		"url": "http://testserver/api/users_profiles/%[1]d.json",
		"user": {"email": "organization2@example.com", "first_name": "", "id": %[3]d,
			"last_name": "", "username": "organization2@example.com"}}`,
		f.organization2.ID, f.org2.ID, f.organization2.UserID)
	assert.JSONEq(t, expected, w.Body.String())

	w = f.get(fmt.Sprintf("/api/users_profiles/%d/", f.admin.ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["is_administrator"])
}

func TestOffersList(t *testing.T) {
	f := newFixture(t)

	w := f.get("/api/offers.json")
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeList(t, w)
	require.Len(t, list, 2)

	first := list[0]
	assert.Equal(t, fmt.Sprintf("http://testserver/api/offers/%d.json", f.offer1.ID), first["url"])
	assert.Equal(t, "Title 1", first["title"])
	assert.Equal(t, "2015-10-05T09:10:11Z", first["started_at"])
	assert.Equal(t, "2015-12-12T12:13:14Z", first["finished_at"])
	assert.Nil(t, first["action_end_date"])
	assert.Equal(t, "published", first["offer_status"])
	assert.Equal(t, "open", first["recruitment_status"])
	assert.Equal(t, "ongoing", first["action_status"])
	assert.Equal(t, "ACTIVE", first["status_old"])
	assert.Equal(t, []interface{}{}, first["images"])
	org := first["organization"].(map[string]interface{})
	assert.Equal(t, "Organization 2", org["name"])
	assert.Equal(t, fmt.Sprintf("http://testserver/api/organizations/%d.json", f.org2.ID), org["url"])
	volunteers := first["volunteers"].([]interface{})
	require.Len(t, volunteers, 1)
	assert.Equal(t, "volunteer2@example.com", volunteers[0].(map[string]interface{})["username"])

	assert.Equal(t, []interface{}{}, list[1]["volunteers"])
}

func TestOffersListHidesUnpublished(t *testing.T) {
	f := newFixture(t)
	o := models.NewOffer()
	o.OrganizationID = f.org1.ID
	o.Title = "Draft"
	require.NoError(t, f.db.CreateOffer(o, f.organization1.UserID, "fixture"))

	assert.Len(t, decodeList(t, f.get("/api/offers/")), 2)

	admin := f.token("admin_user@example.com", "admin_password")
	w := f.do(request{method: http.MethodGet, path: "/api/offers/", token: admin})
	assert.Len(t, decodeList(t, w), 3)

	// a user's organization offers include drafts for every caller
	path := fmt.Sprintf("/api/users/%d/offers.json", f.organization1.UserID)
	for _, token := range []string{
		f.token("organization1@example.com", "organization1"),
		f.token("organization2@example.com", "organization2"),
		"",
	} {
		w = f.do(request{method: http.MethodGet, path: path, token: token})
		require.Equal(t, http.StatusOK, w.Code)
		list := decodeList(t, w)
		require.Len(t, list, 1)
		assert.Equal(t, "Draft", list[0]["title"])
	}
}

func TestOffersListForUserID(t *testing.T) {
	f := newFixture(t)

	w := f.get(fmt.Sprintf("/api/offers.json?user_id=%d", f.volunteer2.UserID))
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeList(t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "Title 1", list[0]["title"])

	for _, bad := range []string{"abc", "0", "-1", "9999"} {
		w = f.get("/api/offers.json?user_id=" + bad)
		assert.Equal(t, http.StatusOK, w.Code, bad)
		assert.Empty(t, decodeList(t, w), bad)
	}
}

func TestOffersPagination(t *testing.T) {
	f := newFixture(t)

	w := f.get("/api/offers/?page=1&page_size=1")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Len(t, page["data"], 1)
	assert.EqualValues(t, 2, page["total_count"])
	assert.EqualValues(t, 2, page["total_pages"])
	assert.Equal(t, true, page["has_next"])
	assert.Equal(t, false, page["has_prev"])

	w = f.get("/api/offers/?page=2&page_size=1")
	require.Equal(t, http.StatusOK, w.Code)
	page = decode(t, w)
	assert.Equal(t, "Title 2", page["data"].([]interface{})[0].(map[string]interface{})["title"])

	assert.Equal(t, http.StatusNotFound, f.get("/api/offers/?page=3&page_size=1").Code)
	assert.Equal(t, http.StatusNotFound, f.get("/api/offers/?page=zero").Code)

	w = f.get("/api/organizations/?page=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["total_count"])
}

func TestOfferDetails(t *testing.T) {
	f := newFixture(t)

	w := f.get(fmt.Sprintf("/api/offers/%d.json", f.offer2.ID))
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, fmt.Sprintf("http://testserver/api/offers/%d.json", f.offer2.ID), out["url"])
	assert.Equal(t, "Benefits 2", out["benefits"])
	assert.EqualValues(t, 0, out["volunteers_limit"])
	assert.Equal(t, true, out["votes"])

	w = f.get("/api/offers/9999/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOfferCreateAnonymous(t *testing.T) {
	f := newFixture(t)

	w := f.do(request{method: http.MethodPost, path: "/api/offers/create/", form: createOfferForm(f.org2.ID)})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token", w.Header().Get("WWW-Authenticate"))
	assert.Equal(t, map[string]interface{}{"detail": "Nie podano danych uwierzytelniających."}, decode(t, w))
}

func TestOfferCreateAdmin(t *testing.T) {
	f := newFixture(t)
	token := f.token("admin_user@example.com", "admin_password")

	w := f.do(request{method: http.MethodPost, path: "/api/offers/create/", form: createOfferForm(f.org2.ID), token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]interface{}{"info": "Administrator nie może tworzyć nowych ofert."}, decode(t, w))
}

func TestOfferCreateWithoutOrganization(t *testing.T) {
	f := newFixture(t)
	token := f.token("volunteer1@example.com", "volunteer1")

	w := f.do(request{method: http.MethodPost, path: "/api/offers/create/", form: createOfferForm(f.org2.ID), token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Nie masz jeszcze żadnej założonej organizacji na volontuloapp.org.", decode(t, w)["info"])
}

func TestOfferCreateSuccess(t *testing.T) {
	f := newFixture(t)
	token := f.token("organization2@example.com", "organization2")

	form := createOfferForm(f.org2.ID)
	form.Set("offer_status", "published")
	w := f.do(request{method: http.MethodPost, path: "/api/offers/create/", form: form, token: token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode(t, w)

	id := int64(out["id"].(float64))
	url := fmt.Sprintf("http://testserver/api/offers/%d/", id)
	assert.Equal(t, url, out["url"])
	assert.Equal(t, url, w.Header().Get("Location"))
	assert.EqualValues(t, f.org2.ID, out["organization"])
	assert.Equal(t, []interface{}{}, out["volunteers"])
	assert.Equal(t, "unpublished", out["offer_status"])
	assert.Equal(t, "NEW", out["status_old"])
	assert.Equal(t, "open", out["recruitment_status"])
	assert.Equal(t, "ongoing", out["action_status"])
	assert.Equal(t, "", out["requirements"])
	assert.Nil(t, out["started_at"])
	assert.Equal(t, false, out["votes"])
	assert.NotContains(t, out, "images")

	// new offers are not public yet
	assert.Len(t, decodeList(t, f.get("/api/offers/")), 2)
}

func TestOfferCreateJSONBody(t *testing.T) {
	f := newFixture(t)
	token := f.token("organization2@example.com", "organization2")

	body, err := json.Marshal(map[string]interface{}{
		"title":           "JSON offer",
		"time_commitment": "tc",
		"benefits":        "b",
		"location":        "l",
		"description":     "d",
		"organization":    f.org2.ID,
		"votes":           true,
	})
	require.NoError(t, err)
	w := f.do(request{method: http.MethodPost, path: "/api/offers/create/", json: string(body), token: token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["votes"])

	w = f.do(request{method: http.MethodPost, path: "/api/offers/create/", json: "{broken", token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["detail"], "Błędna treść żądania")
}

func TestOfferCreateValidation(t *testing.T) {
	f := newFixture(t)
	token := f.token("organization2@example.com", "organization2")

	w := f.do(request{method: http.MethodPost, path: "/api/offers/create/", form: url.Values{"title": {"Only a title"}}, token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	out := decode(t, w)
	assert.Equal(t, []interface{}{"To pole jest wymagane."}, out["description"])
	assert.Equal(t, []interface{}{"To pole jest wymagane."}, out["organization"])

	// organizations of other users cannot be chosen
	w = f.do(request{method: http.MethodPost, path: "/api/offers/create/", form: createOfferForm(f.org1.ID), token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{fmt.Sprintf("Nie jesteś członkiem organizacji \"%d\".", f.org1.ID)}, decode(t, w)["organization"])
}

func TestOfferEditAnonymous(t *testing.T) {
	f := newFixture(t)
	path := fmt.Sprintf("/api/offers/%d/update/", f.offer2.ID)

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		w := f.do(request{method: method, path: path, form: url.Values{"title": {"API created offer updated"}}})
		assert.Equal(t, http.StatusUnauthorized, w.Code, method)
		assert.Equal(t, "Nie podano danych uwierzytelniających.", decode(t, w)["detail"])
	}
}

func TestOfferEditWrongUser(t *testing.T) {
	f := newFixture(t)
	token := f.token("volunteer1@example.com", "volunteer1")
	path := fmt.Sprintf("/api/offers/%d/update/", f.offer2.ID)

	w := f.do(request{method: http.MethodPut, path: path, form: createOfferForm(f.org2.ID), token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]interface{}{"info": "Użytkownik nie może edytować wybranej oferty."}, decode(t, w))

	w = f.do(request{method: http.MethodPatch, path: path, form: url.Values{"title": {"x"}}, token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Użytkownik nie może edytować wybranej oferty.", decode(t, w)["info"])

	w = f.do(request{method: http.MethodPatch, path: "/api/offers/9999/update/", form: url.Values{"title": {"x"}}, token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOfferFullEdit(t *testing.T) {
	for _, login := range [][2]string{
		{"organization2@example.com", "organization2"},
		{"admin_user@example.com", "admin_password"},
	} {
		t.Run(login[0], func(t *testing.T) {
			f := newFixture(t)
			token := f.token(login[0], login[1])
			form := createOfferForm(f.org2.ID)
			form.Set("title", "API edited offer updated")

			w := f.do(request{method: http.MethodPut, path: fmt.Sprintf("/api/offers/%d/update/", f.offer2.ID), form: form, token: token})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			out := decode(t, w)
			assert.Equal(t, fmt.Sprintf("http://testserver/api/offers/%d/", f.offer2.ID), out["url"])
			assert.Equal(t, "API edited offer updated", out["title"])
			assert.Equal(t, "API location", out["location"])
			assert.Equal(t, "unpublished", out["offer_status"])
			// untouched columns survive, omitted checkboxes clear
			assert.Equal(t, "Requirements 2", out["requirements"])
			assert.Equal(t, "2015-10-05T09:10:11Z", out["started_at"])
			assert.Equal(t, false, out["votes"])
			assert.Equal(t, false, out["reserve_recruitment"])
		})
	}
}

func TestOfferPartialEdit(t *testing.T) {
	f := newFixture(t)
	token := f.token("organization2@example.com", "organization2")

	w := f.do(request{method: http.MethodPatch, path: fmt.Sprintf("/api/offers/%d/update/", f.offer2.ID),
		form: url.Values{"title": {"API edited offer updated"}, "location": {"API location updated"}}, token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, "API edited offer updated", out["title"])
	assert.Equal(t, "API location updated", out["location"])
	assert.Equal(t, "Benefits 2", out["benefits"])
	assert.Equal(t, "unpublished", out["offer_status"])
	assert.Equal(t, true, out["votes"])
	assert.Equal(t, true, out["reserve_recruitment"])
	assert.EqualValues(t, f.org2.ID, out["organization"])
}

func TestOfferJoin(t *testing.T) {
	f := newFixture(t)
	path := fmt.Sprintf("/api/offers/%d/join/", f.offer2.ID)

	w := f.do(request{method: http.MethodPost, path: path, form: joinForm()})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := f.token("organization2@example.com", "organization2")
	missing := joinForm()
	missing.Del("phone_no")
	w = f.do(request{method: http.MethodPost, path: path, form: missing, token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]interface{}{"phone_no": []interface{}{"To pole jest wymagane."}}, decode(t, w))

	w = f.do(request{method: http.MethodPost, path: path, form: joinForm(), token: token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"info": "Zgłoszenie chęci uczestnictwa zostało wysłane."}, decode(t, w))

	w = f.do(request{method: http.MethodPost, path: path, form: joinForm(), token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]interface{}{"info": "Już wyraziłeś chęć uczestnictwa w tej ofercie."}, decode(t, w))

	w = f.do(request{method: http.MethodPost, path: "/api/offers/9999/join/", form: joinForm(), token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)

	volunteers, err := f.db.GetOfferVolunteers(f.offer2.ID)
	require.NoError(t, err)
	require.Len(t, volunteers, 1)
	assert.Equal(t, f.organization2.UserID, volunteers[0].ID)
}
