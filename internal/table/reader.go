// Package table decodes and encodes the semicolon separated address tables
// exchanged with users.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"address-mapper/internal/models"

	"github.com/jszwec/csvutil"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Delimiter separates the fields of every table handled by this package.
const Delimiter = ';'

// Column names of the address table.
const (
	ColumnStreet      = "Straße"
	ColumnHouseNumber = "Hausnummer"
	ColumnPostalCode  = "PLZ"
	ColumnCity        = "Stadt"
	ColumnCountry     = "Land"
	ColumnFirstName   = "Vorname"
	ColumnLastName    = "Nachname"
)

// RequiredColumns must all be present in the header of an address table.
var RequiredColumns = []string{
	ColumnStreet,
	ColumnHouseNumber,
	ColumnPostalCode,
	ColumnCity,
	ColumnCountry,
	ColumnFirstName,
	ColumnLastName,
}

// MissingColumnError reports a required column absent from the header.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("table: missing required column %q", e.Column)
}

// ErrNoHeader is returned for input without a header row.
var ErrNoHeader = errors.New("table: missing header row")

type addressRow struct {
	FirstName   string `csv:"Vorname"`
	LastName    string `csv:"Nachname"`
	Street      string `csv:"Straße"`
	HouseNumber string `csv:"Hausnummer"`
	PostalCode  string `csv:"PLZ"`
	City        string `csv:"Stadt"`
	Country     string `csv:"Land"`
}

func (r addressRow) record() models.AddressRecord {
	return models.AddressRecord{
		FirstName:   cell(r.FirstName),
		LastName:    cell(r.LastName),
		Street:      cell(r.Street),
		HouseNumber: cell(r.HouseNumber),
		PostalCode:  cell(r.PostalCode),
		City:        cell(r.City),
		Country:     cell(r.Country),
	}
}

// cell trims a value and composes umlauts that some exports store decomposed.
func cell(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}

// ReadAddresses decodes an address table. Unknown columns are ignored; a
// missing required column yields a *MissingColumnError.
func ReadAddresses(r io.Reader) ([]models.AddressRecord, error) {
	dec, err := newDecoder(r, RequiredColumns)
	if err != nil {
		return nil, err
	}

	records := []models.AddressRecord{}
	for row := 1; ; row++ {
		var ar addressRow
		if err := dec.Decode(&ar); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("table: failed to decode row %d: %w", row, err)
		}
		records = append(records, ar.record())
	}

	return records, nil
}

// newDecoder reads and validates the header, then hands the remaining rows
// to csvutil keyed by the normalized column names.
func newDecoder(r io.Reader, required []string) (*csvutil.Decoder, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.Comma = Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("table: failed to read header: %w", err)
	}

	for i, name := range header {
		header[i] = normalizeColumn(name)
	}

	for _, column := range required {
		if !slices.Contains(header, column) {
			return nil, &MissingColumnError{Column: column}
		}
	}

	dec, err := csvutil.NewDecoder(&paddedReader{r: reader, width: len(header)}, header...)
	if err != nil {
		return nil, fmt.Errorf("table: failed to create decoder: %w", err)
	}

	return dec, nil
}

// paddedReader fills rows that lack trailing cells with empty values, the way
// spreadsheet exports drop empty columns at the end of a line. Rows with more
// cells than the header are rejected.
type paddedReader struct {
	r     *csv.Reader
	width int
}

func (p *paddedReader) Read() ([]string, error) {
	record, err := p.r.Read()
	if err != nil {
		return nil, err
	}

	if len(record) > p.width {
		line, _ := p.r.FieldPos(0)
		return nil, fmt.Errorf("record on line %d: %w", line, csv.ErrFieldCount)
	}

	for len(record) < p.width {
		record = append(record, "")
	}

	return record, nil
}

func normalizeColumn(name string) string {
	return cell(name)
}
