package domain

import "strings"

// JIDSuffix is the user-address suffix of the target messaging network.
const JIDSuffix = "@s.whatsapp.net"

// NumberPlan describes the national numbering conventions used to expand a
// raw phone string into plausible network identifiers.
type NumberPlan struct {
	// CountryCode is the expected international prefix, digits only.
	CountryCode string
	// AreaCodeDigits is the number of area-code digits after the country code.
	AreaCodeDigits int
	// MinNationalDigits is the minimum significant-digit count; shorter
	// inputs produce no variants at all.
	MinNationalDigits int
	// MaxNationalDigits bounds the reinterpretation of inputs that merely
	// start with the country-code digits (e.g. an area code of 55).
	MaxNationalDigits int
	// MobileDigit is the extra leading digit of mobile subscriber numbers.
	MobileDigit byte
}

// DefaultNumberPlan mirrors the Brazilian conventions: country code 55,
// two-digit area codes, eight-digit fixed lines and the ninth-digit mobile
// convention.
func DefaultNumberPlan() NumberPlan {
	return NumberPlan{
		CountryCode:       "55",
		AreaCodeDigits:    2,
		MinNationalDigits: 8,
		MaxNationalDigits: 11,
		MobileDigit:       '9',
	}
}

// Digits strips everything but decimal digits from raw.
func Digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneVariants expands a raw phone string into the set of plausible full
// international numbers for the plan's network. Deterministic and
// side-effect free; duplicates collapse while insertion order is preserved.
// Inputs shorter than the plan's minimum yield an empty set.
func PhoneVariants(raw string, plan NumberPlan) []string {
	digits := Digits(raw)
	if len(digits) < plan.MinNationalDigits {
		return nil
	}

	set := variantSet{}
	if strings.HasPrefix(digits, plan.CountryCode) {
		set.add(digits)
		if len(digits) <= plan.MaxNationalDigits {
			// The leading digits may equally be a national area code,
			// so keep the country-prefixed reading as well.
			set.add(plan.CountryCode + digits)
		}
	} else {
		set.add(plan.CountryCode + digits)
	}

	for _, full := range append([]string(nil), set.ordered...) {
		for _, v := range mobileVariants(full, plan) {
			set.add(v)
		}
	}

	return set.ordered
}

// CanonicalJID is the best-guess network identifier for a raw phone string,
// used when no candidate could be confirmed by an existence lookup.
func CanonicalJID(raw string, plan NumberPlan) (string, error) {
	digits := Digits(raw)
	if digits == "" {
		return "", ErrPhoneInvalid
	}
	if !strings.HasPrefix(digits, plan.CountryCode) {
		digits = plan.CountryCode + digits
	}
	return digits + JIDSuffix, nil
}

// NumberFromJID extracts the subscriber digits from a network identifier.
func NumberFromJID(jid string) string {
	user, _, _ := strings.Cut(jid, "@")
	return Digits(user)
}

// mobileVariants produces the with- and without-extra-digit counterparts of a
// full international number, when the number is long enough to carry the
// mobile convention at all.
func mobileVariants(full string, plan NumberPlan) []string {
	ccLen := len(plan.CountryCode)
	if len(full) < ccLen+plan.AreaCodeDigits+plan.MinNationalDigits {
		return nil
	}

	area := full[ccLen : ccLen+plan.AreaCodeDigits]
	rest := full[ccLen+plan.AreaCodeDigits:]

	switch {
	case len(rest) >= plan.MinNationalDigits+1 && rest[0] == plan.MobileDigit:
		return []string{plan.CountryCode + area + rest[1:]}
	case len(rest) == plan.MinNationalDigits:
		return []string{plan.CountryCode + area + string(plan.MobileDigit) + rest}
	default:
		return nil
	}
}

type variantSet struct {
	ordered []string
	seen    map[string]struct{}
}

func (s *variantSet) add(v string) {
	if v == "" {
		return
	}
	if s.seen == nil {
		s.seen = map[string]struct{}{}
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.ordered = append(s.ordered, v)
}
