package services

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"nhs-gp-scraper/models"
)

// ErrParse is returned when a label holds no usable number.
var ErrParse = errors.New("parse failure")

var (
	// nonNumericRegexp matches everything that is not a digit or a dot
	nonNumericRegexp = regexp.MustCompile(`[^\d.]+`)
	// nonDigitRegexp matches everything that is not a digit
	nonDigitRegexp = regexp.MustCompile(`\D+`)
)

// ParseNumber discards every character except digits and '.', then parses
// the remainder as a float. Thousands separators are therefore dropped:
// "1,234" parses as 1234.
//
//	"2.3 miles" → 2.3
//	"87%"       → 87
func ParseNumber(label string) (float64, error) {
	cleaned := nonNumericRegexp.ReplaceAllString(label, "")
	if cleaned == "" || strings.Trim(cleaned, ".") == "" {
		return 0, fmt.Errorf("%w: no digits in %q", ErrParse, label)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrParse, label, err)
	}
	return v, nil
}

// ParseCount keeps only the digits of label and parses them as an integer.
func ParseCount(label string) (int, error) {
	cleaned := nonDigitRegexp.ReplaceAllString(label, "")
	if cleaned == "" {
		return 0, fmt.Errorf("%w: no digits in %q", ErrParse, label)
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrParse, label, err)
	}
	return n, nil
}

// NormaliseText strips leading/trailing whitespace and collapses internal whitespace.
func NormaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

type metricRule struct {
	metric models.Metric
	terms  []string
}

// metricRules are tried in order; the first rule whose terms all occur in
// the label wins.
var metricRules = []metricRule{
	{models.MetricRecommend, []string{"recommend"}},
	{models.MetricOpeningHours, []string{"opening hours"}},
	{models.MetricPhone, []string{"positive", "phone"}},
	{models.MetricAppointment, []string{"good", "appointment"}},
	{models.MetricOverall, []string{"overall", "experience"}},
}

// ClassifyMetric maps a metric block label to its canonical field.
// Matching is a case-insensitive substring test.
func ClassifyMetric(label string) (models.Metric, bool) {
	l := strings.ToLower(NormaliseText(label))
	if l == "" {
		return "", false
	}
	for _, rule := range metricRules {
		if containsAll(l, rule.terms) {
			return rule.metric, true
		}
	}
	return "", false
}

func containsAll(s string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}
