// Package contactinfo reads the pipe-separated "Label: value"
// contact blob shared by tickets and redemption requests.
package contactinfo

import (
	"regexp"
	"strings"
)

const (
	LabelName       = "ชื่อ:"
	LabelNameAlt    = "Username:"
	LabelPhone      = "เบอร์โทร:"
	LabelPhoneAlt   = "Phone:"
	LabelPassword   = "Password:"
	LabelPasswordTH = "รหัสผ่าน:"
	LabelCode       = "Code:"
	LabelCodeTH     = "โค้ด:"
)

var (
	nameRe       = labelRegexp(LabelName, LabelNameAlt)
	passwordRe   = labelRegexp(LabelPassword, LabelPasswordTH)
	codeRe       = labelRegexp(LabelCode, LabelCodeTH)
	phoneLabelRe = labelRegexp(LabelPhone)
	phoneAltRe   = labelRegexp(LabelPhoneAlt)
	bareDigitsRe = regexp.MustCompile(`\d{10,}`)
)

func labelRegexp(labels ...string) *regexp.Regexp {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(`(?:` + strings.Join(quoted, "|") + `)([^|]*)`)
}

// Fields holds the values found in a contact blob. A nil field means the
// label was absent.
type Fields struct {
	DisplayName *string
	Phone       *string
	Password    *string
	Code        *string
}

// Parse extracts every recognized field from s.
func Parse(s string) Fields {
	f := Fields{
		DisplayName: match(nameRe, s),
		Password:    match(passwordRe, s),
		Code:        match(codeRe, s),
	}
	if phone, ok := Phone(s); ok {
		f.Phone = &phone
	}
	return f
}

// Phone tries the Thai phone label, then the English one, then a bare run of
// ten or more digits.
func Phone(s string) (string, bool) {
	if v := match(phoneLabelRe, s); v != nil {
		return *v, true
	}
	if v := match(phoneAltRe, s); v != nil {
		return *v, true
	}
	if run := bareDigitsRe.FindString(s); run != "" {
		return run, true
	}
	return "", false
}

// ThaiLabeledPhone returns the phone only when written under the Thai label.
func ThaiLabeledPhone(s string) (string, bool) {
	return deref(match(phoneLabelRe, s))
}

func match(re *regexp.Regexp, s string) *string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(m[1])
	return &v
}

func deref(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	return *v, true
}
