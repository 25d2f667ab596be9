package service

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"address-mapper/internal/models"
)

// PostalCodeWidth is the number of digits postal codes are padded to.
const PostalCodeWidth = 4

// floats beyond this are not truncated to integers; NaN compares false too
const maxExactFloatInt = 1 << 53

var (
	// digits with an optional letter suffix, e.g. "12" or "12a"; word
	// boundaries are checked by houseNumber
	houseNumberPattern = regexp.MustCompile(`\p{Nd}+[a-zA-Z]*`)
	// everything before the first digit
	streetNamePattern = regexp.MustCompile(`^\P{Nd}+`)
)

// houseNumber returns the first house number in s that stands on its own,
// so "Hauptstraße 12a" yields "12a" while "Straße12" and "12ä" yield nothing.
// Word characters include letters of every script, not just ASCII.
func houseNumber(s string) string {
	for _, loc := range houseNumberPattern.FindAllStringIndex(s, -1) {
		if before, _ := utf8.DecodeLastRuneInString(s[:loc[0]]); loc[0] > 0 && isWordRune(before) {
			continue
		}
		if after, _ := utf8.DecodeRuneInString(s[loc[1]:]); loc[1] < len(s) && isWordRune(after) {
			continue
		}
		return s[loc[0]:loc[1]]
	}

	return ""
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// RepairSplitFields fixes rows where the house number was typed into the
// street column or the street into the house number column. Only the first
// match is used, so a street like "Lot 5, Street 12" yields "5".
func RepairSplitFields(rec *models.AddressRecord) {
	if rec.HouseNumber == "" && rec.Street != "" {
		if number := houseNumber(rec.Street); number != "" {
			rec.HouseNumber = number
			rec.Street = strings.TrimSpace(strings.ReplaceAll(rec.Street, number, ""))
		}
	}

	if rec.Street == "" && rec.HouseNumber != "" {
		if name := streetNamePattern.FindString(rec.HouseNumber); name != "" {
			rec.Street = strings.TrimSpace(name)
			rec.HouseNumber = strings.TrimSpace(strings.ReplaceAll(rec.HouseNumber, rec.Street, ""))
		}
	}
}

// NormalizeRecords repairs every record in place.
func NormalizeRecords(records []models.AddressRecord) {
	for i := range records {
		RepairSplitFields(&records[i])
	}
}

// FormatPostalCode zero-pads a postal code to PostalCodeWidth. Blank values
// become "0000". Numbers rendered as floats by spreadsheet exports ("42.0")
// are truncated first. Longer codes are never shortened.
func FormatPostalCode(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = "0"
	}

	if !isDigits(value) {
		if f, err := strconv.ParseFloat(value, 64); err == nil && math.Abs(f) < maxExactFloatInt {
			value = strconv.FormatInt(int64(f), 10)
		}
	}

	return zeroFill(value, PostalCodeWidth)
}

// FormatPostalCodes applies FormatPostalCode to every record in place.
func FormatPostalCodes(records []models.AddressRecord) {
	for i := range records {
		records[i].PostalCode = FormatPostalCode(records[i].PostalCode)
	}
}

// FullAddress builds the free-text query sent to the geocoding provider.
func FullAddress(rec models.AddressRecord) string {
	return fmt.Sprintf("%s %s, %s %s, %s", rec.Street, rec.HouseNumber, rec.PostalCode, rec.City, rec.Country)
}

// BuildFullAddresses sets FullAddress on every record in place.
func BuildFullAddresses(records []models.AddressRecord) {
	for i := range records {
		records[i].FullAddress = FullAddress(records[i])
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// zeroFill pads s with leading zeros, keeping a leading sign in front.
func zeroFill(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}

	padding := strings.Repeat("0", width-n)
	if s[0] == '-' || s[0] == '+' {
		return s[:1] + padding + s[1:]
	}

	return padding + s
}
