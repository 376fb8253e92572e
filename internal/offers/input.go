package offers

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volontulo/go-volontulo/internal/i18n"
	"github.com/volontulo/go-volontulo/internal/models"
)

// Input is a decoded request body. Values hold strings for form posts and
// JSON types (string, float64, bool, nil) for JSON bodies.
type Input struct {
	Values map[string]interface{}
	// Form is set for HTML form bodies where an absent checkbox means false
	Form bool
}

// FormInput converts url.Values style data, keeping the first value of each key
func FormInput(form map[string][]string) Input {
	in := Input{Values: make(map[string]interface{}, len(form)), Form: true}
	for k, v := range form {
		if len(v) > 0 {
			in.Values[k] = v[0]
		}
	}
	return in
}

func (in Input) lookup(name string) (interface{}, bool) {
	v, ok := in.Values[name]
	return v, ok
}

// accepted datetime layouts, all interpreted as UTC unless they carry a zone
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTime(s string) (*time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	return nil, false
}

func asString(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case nil:
		return "", true
	}
	return "", false
}

func asBool(v interface{}) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case float64:
		if x == 0 || x == 1 {
			return x == 1, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "on", "yes", "t", "y":
			return true, true
		case "false", "0", "off", "no", "f", "n", "":
			return false, true
		}
	}
	return false, false
}

func asInt(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case float64:
		if x != float64(int64(x)) {
			return 0, false
		}
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	}
	return 0, false
}

type fieldKind int

const (
	kindText fieldKind = iota
	kindChoice
	kindBool
	kindInt
	kindTime
)

// offerField describes one writable offer column
type offerField struct {
	name     string
	kind     fieldKind
	required bool
	maxLen   int
	minInt   int
	choices  []string
	str      func(o *models.Offer) *string
	boolean  func(o *models.Offer) *bool
	integer  func(o *models.Offer) *int
	datetime func(o *models.Offer) **time.Time
}

var offerFields = []offerField{
	{name: "title", kind: kindText, required: true, maxLen: models.OfferTitleMaxLen, str: func(o *models.Offer) *string { return &o.Title }},
	{name: "description", kind: kindText, required: true, str: func(o *models.Offer) *string { return &o.Description }},
	{name: "requirements", kind: kindText, str: func(o *models.Offer) *string { return &o.Requirements }},
	{name: "time_commitment", kind: kindText, required: true, str: func(o *models.Offer) *string { return &o.TimeCommitment }},
	{name: "benefits", kind: kindText, required: true, str: func(o *models.Offer) *string { return &o.Benefits }},
	{name: "location", kind: kindText, required: true, maxLen: models.OfferLocationMaxLen, str: func(o *models.Offer) *string { return &o.Location }},
	{name: "time_period", kind: kindText, maxLen: models.OfferTimePeriodMaxLen, str: func(o *models.Offer) *string { return &o.TimePeriod }},
	{name: "started_at", kind: kindTime, datetime: func(o *models.Offer) **time.Time { return &o.StartedAt }},
	{name: "finished_at", kind: kindTime, datetime: func(o *models.Offer) **time.Time { return &o.FinishedAt }},
	{name: "status_old", kind: kindChoice, choices: models.StatusOldChoices, str: func(o *models.Offer) *string { return &o.StatusOld }},
	{name: "offer_status", kind: kindChoice, choices: models.OfferStatusChoices, str: func(o *models.Offer) *string { return &o.OfferStatus }},
	{name: "recruitment_status", kind: kindChoice, choices: models.RecruitmentChoices, str: func(o *models.Offer) *string { return &o.RecruitmentStatus }},
	{name: "action_status", kind: kindChoice, choices: models.ActionChoices, str: func(o *models.Offer) *string { return &o.ActionStatus }},
	{name: "votes", kind: kindBool, boolean: func(o *models.Offer) *bool { return &o.Votes }},
	{name: "recruitment_start_date", kind: kindTime, datetime: func(o *models.Offer) **time.Time { return &o.RecruitmentStartDate }},
	{name: "recruitment_end_date", kind: kindTime, datetime: func(o *models.Offer) **time.Time { return &o.RecruitmentEndDate }},
	{name: "reserve_recruitment", kind: kindBool, boolean: func(o *models.Offer) *bool { return &o.ReserveRecruitment }},
	{name: "reserve_recruitment_start_date", kind: kindTime, datetime: func(o *models.Offer) **time.Time { return &o.ReserveRecruitmentStartDate }},
	{name: "reserve_recruitment_end_date", kind: kindTime, datetime: func(o *models.Offer) **time.Time { return &o.ReserveRecruitmentEndDate }},
	{name: "action_ongoing", kind: kindBool, boolean: func(o *models.Offer) *bool { return &o.ActionOngoing }},
	{name: "constant_coop", kind: kindBool, boolean: func(o *models.Offer) *bool { return &o.ConstantCoop }},
	{name: "action_start_date", kind: kindTime, datetime: func(o *models.Offer) **time.Time { return &o.ActionStartDate }},
	{name: "action_end_date", kind: kindTime, datetime: func(o *models.Offer) **time.Time { return &o.ActionEndDate }},
	{name: "volunteers_limit", kind: kindInt, integer: func(o *models.Offer) *int { return &o.VolunteersLimit }},
	{name: "weight", kind: kindInt, minInt: -1 << 31, integer: func(o *models.Offer) *int { return &o.Weight }},
}

// applyFields writes the input onto o and returns the names of changed fields.
// With partial set only present fields are validated and written; otherwise
// required fields must be present and absent form checkboxes reset to false.
func applyFields(o *models.Offer, in Input, partial bool, errs FieldErrors) []string {
	var changed []string
	for _, f := range offerFields {
		raw, present := in.lookup(f.name)
		if !present {
			if partial {
				continue
			}
			if f.required {
				errs.Add(f.name, i18n.MsgRequired)
				continue
			}
			if f.kind == kindBool && in.Form {
				if p := f.boolean(o); *p {
					*p = false
					changed = append(changed, f.name)
				}
			}
			continue
		}
		if f.apply(o, raw, errs) {
			changed = append(changed, f.name)
		}
	}
	return changed
}

// apply converts and validates one value, reporting whether the offer changed
func (f offerField) apply(o *models.Offer, raw interface{}, errs FieldErrors) bool {
	switch f.kind {
	case kindText, kindChoice:
		s, ok := asString(raw)
		if !ok {
			errs.Add(f.name, i18n.MsgInvalidString)
			return false
		}
		s = strings.TrimSpace(s)
		if f.kind == kindChoice {
			if !models.IsChoice(s, f.choices) {
				errs.Add(f.name, i18n.MsgInvalidChoice, s)
				return false
			}
		} else {
			if f.required && s == "" {
				errs.Add(f.name, i18n.MsgBlank)
				return false
			}
			if f.maxLen > 0 && len([]rune(s)) > f.maxLen {
				errs.Add(f.name, i18n.MsgMaxLength, f.maxLen)
				return false
			}
		}
		p := f.str(o)
		if *p == s {
			return false
		}
		*p = s
		return true

	case kindBool:
		b, ok := asBool(raw)
		if !ok {
			errs.Add(f.name, i18n.MsgInvalidBoolean)
			return false
		}
		p := f.boolean(o)
		if *p == b {
			return false
		}
		*p = b
		return true

	case kindInt:
		if s, isStr := raw.(string); isStr && strings.TrimSpace(s) == "" {
			return false
		}
		n, ok := asInt(raw)
		if !ok || n > 1<<31-1 || n < -1<<31 {
			errs.Add(f.name, i18n.MsgInvalidInteger)
			return false
		}
		if n < int64(f.minInt) {
			errs.Add(f.name, i18n.MsgMinValue, f.minInt)
			return false
		}
		p := f.integer(o)
		if *p == int(n) {
			return false
		}
		*p = int(n)
		return true

	case kindTime:
		p := f.datetime(o)
		s, ok := asString(raw)
		if !ok {
			errs.Add(f.name, i18n.MsgInvalidDatetime)
			return false
		}
		if strings.TrimSpace(s) == "" {
			if *p == nil {
				return false
			}
			*p = nil
			return true
		}
		t, ok := parseTime(strings.TrimSpace(s))
		if !ok {
			errs.Add(f.name, i18n.MsgInvalidDatetime)
			return false
		}
		if *p != nil && (*p).Equal(*t) {
			return false
		}
		*p = t
		return true
	}
	return false
}

// organizationID extracts the organization primary key
func organizationID(in Input, partial bool, errs FieldErrors) (int64, bool) {
	raw, present := in.lookup("organization")
	if !present {
		if !partial {
			errs.Add("organization", i18n.MsgRequired)
		}
		return 0, false
	}
	if s, isStr := raw.(string); raw == nil || (isStr && strings.TrimSpace(s) == "") {
		errs.Add("organization", i18n.MsgRequired)
		return 0, false
	}
	id, ok := asInt(raw)
	if !ok || id <= 0 {
		s, _ := asString(raw)
		errs.Add("organization", i18n.MsgInvalidPK, s)
		return 0, false
	}
	return id, true
}

var applicationValidator = newApplicationValidator()

func newApplicationValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ApplicationFromInput builds a join application from the request body
func ApplicationFromInput(in Input) *models.OfferApplication {
	get := func(name string) string {
		raw, _ := in.lookup(name)
		s, _ := asString(raw)
		return strings.TrimSpace(s)
	}
	return &models.OfferApplication{
		Email:    get("email"),
		PhoneNo:  get("phone_no"),
		Fullname: get("fullname"),
		Comments: get("comments"),
	}
}

// ValidateApplication checks the required and length rules of a join application
func ValidateApplication(app *models.OfferApplication) FieldErrors {
	err := applicationValidator.Struct(app)
	if err == nil {
		return nil
	}
	errs := FieldErrors{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs.Add(NonFieldErrors, err.Error())
		return errs
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			errs.Add(fe.Field(), i18n.MsgRequired)
		case "max":
			n, _ := strconv.Atoi(fe.Param())
			errs.Add(fe.Field(), i18n.MsgMaxLength, n)
		default:
			errs.Add(fe.Field(), i18n.MsgInvalidChoice, fmt.Sprint(fe.Value()))
		}
	}
	return errs
}
