package scoring

import (
	"strings"
	"unicode"

	"github.com/wisedom/wisedom/internal/model"
)

// DefaultDuplicateThreshold is the similarity at which two contacts are
// reported as likely duplicates.
const DefaultDuplicateThreshold = 0.8

// SimilarityFeatures holds the per-field similarities of two contacts, each
// in 0..1.
type SimilarityFeatures struct {
	Email       float64 `json:"email"`
	Phone       float64 `json:"phone"`
	Name        float64 `json:"name"`
	Company     float64 `json:"company"`
	Title       float64 `json:"title"`
	Phonetic    float64 `json:"phonetic"`
	EmailDomain float64 `json:"email_domain"`
	NameTokens  float64 `json:"name_tokens"`
}

// similarityWeightTotal is the sum of the feature weights used by Score.
const similarityWeightTotal = 0.3 + 0.2 + 0.2 + 0.1 + 0.1 + 0.05 + 0.05 + 0.05

// Score is the weighted average of the features, in 0..1.
func (f SimilarityFeatures) Score() float64 {
	sum := f.Email*0.3 +
		f.Phone*0.2 +
		f.Name*0.2 +
		f.Company*0.1 +
		f.Title*0.1 +
		f.Phonetic*0.05 +
		f.EmailDomain*0.05 +
		f.NameTokens*0.05
	return sum / similarityWeightTotal
}

// DuplicatePair is two contacts whose similarity reached the threshold.
type DuplicatePair struct {
	ContactA *model.Contact     `json:"contact_a"`
	ContactB *model.Contact     `json:"contact_b"`
	Features SimilarityFeatures `json:"features"`
	Score    float64            `json:"score"`
}

// CompareContacts computes the similarity features of a and b.
func CompareContacts(a, b *model.Contact) SimilarityFeatures {
	nameA, nameB := a.FullName(), b.FullName()
	emailA, emailB := deref(a.Email), deref(b.Email)

	return SimilarityFeatures{
		Email:       exactMatch(normalizeEmail(emailA), normalizeEmail(emailB)),
		Phone:       exactMatch(normalizePhone(deref(a.Phone)), normalizePhone(deref(b.Phone))),
		Name:        stringSimilarity(normalizeName(nameA), normalizeName(nameB)),
		Company:     stringSimilarity(normalizeName(deref(a.Company)), normalizeName(deref(b.Company))),
		Title:       stringSimilarity(normalizeName(deref(a.Title)), normalizeName(deref(b.Title))),
		Phonetic:    stringSimilarity(phonetic(nameA), phonetic(nameB)),
		EmailDomain: exactMatch(emailDomain(emailA), emailDomain(emailB)),
		NameTokens:  tokenOverlap(nameA, nameB),
	}
}

// DetectDuplicates compares every pair of contacts and returns those scoring
// at least threshold, in input order.
func DetectDuplicates(contacts []*model.Contact, threshold float64) []DuplicatePair {
	pairs := make([]DuplicatePair, 0)
	for i := 0; i < len(contacts); i++ {
		for j := i + 1; j < len(contacts); j++ {
			f := CompareContacts(contacts[i], contacts[j])
			if score := f.Score(); score >= threshold {
				pairs = append(pairs, DuplicatePair{
					ContactA: contacts[i],
					ContactB: contacts[j],
					Features: f,
					Score:    score,
				})
			}
		}
	}
	return pairs
}

// GroupSimilar clusters contacts around each duplicate pair. A group starts
// from the first unclaimed pair and takes every other unclaimed contact that
// is similar to the pair's first contact. Contacts matching nothing are left
// out, so every returned group has at least two members.
func GroupSimilar(contacts []*model.Contact, threshold float64) [][]*model.Contact {
	claimed := make(map[string]bool, len(contacts))
	groups := make([][]*model.Contact, 0)

	for _, pair := range DetectDuplicates(contacts, threshold) {
		if claimed[pair.ContactA.ID] || claimed[pair.ContactB.ID] {
			continue
		}
		group := []*model.Contact{pair.ContactA, pair.ContactB}
		claimed[pair.ContactA.ID] = true
		claimed[pair.ContactB.ID] = true

		for _, c := range contacts {
			if claimed[c.ID] {
				continue
			}
			if CompareContacts(pair.ContactA, c).Score() >= threshold {
				group = append(group, c)
				claimed[c.ID] = true
			}
		}
		groups = append(groups, group)
	}
	return groups
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// exactMatch is 1 for equal non-empty values.
func exactMatch(a, b string) float64 {
	if a == "" || b == "" || a != b {
		return 0
	}
	return 1
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizePhone keeps digits and plus signs.
func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func emailDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(domain))
}

// phonetic is a crude sound key: ASCII consonants only, with runs of the
// same letter collapsed.
func phonetic(name string) string {
	var b strings.Builder
	var last rune
	for _, r := range strings.ToLower(name) {
		if r < 'a' || r > 'z' || strings.ContainsRune("aeiou", r) {
			continue
		}
		if r == last {
			continue
		}
		b.WriteRune(r)
		last = r
	}
	return b.String()
}

// tokenOverlap is the share of whitespace tokens two names have in common.
func tokenOverlap(a, b string) float64 {
	ta := strings.Fields(strings.ToLower(a))
	tb := strings.Fields(strings.ToLower(b))
	n := max(len(ta), len(tb))
	if n == 0 {
		return 0
	}

	set := make(map[string]bool, len(tb))
	for _, t := range tb {
		set[t] = true
	}
	common := 0
	for _, t := range ta {
		if set[t] {
			common++
		}
	}
	return float64(common) / float64(n)
}

// stringSimilarity is 1 - levenshtein/maxLen. Empty inputs carry no signal
// and score 0.
func stringSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	n := max(len(ra), len(rb))
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(n)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
