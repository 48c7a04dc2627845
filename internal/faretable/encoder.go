// Package faretable writes fare routes in the legacy TRFZ text format read
// by validators and ticket machines: ';' separated fields, CRLF line ends,
// CP866 text.
package faretable

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"fareroute/internal/fare"
)

const (
	// Substitute replaces characters CP866 cannot represent.
	Substitute = '?'

	dateLayout       = "060102"
	maxRouteNumber   = 6
	maxDescriptorLen = 30
)

var ErrEmptyBatch = errors.New("faretable: no routes to export")

// Header holds the fields of the first line of a fare file.
type Header struct {
	RegionCode    string
	CarrierID     string
	UnitID        string
	Date          time.Time
	DecimalPlaces int
}

// HeaderFor builds the header of a single-route file.
func HeaderFor(r fare.Route, date time.Time) Header {
	return Header{
		RegionCode:    r.RegionCode,
		CarrierID:     r.CarrierID,
		UnitID:        r.UnitID,
		Date:          date,
		DecimalPlaces: r.DecimalPlaces,
	}
}

// Validate checks the fields a caller may override on a bulk export.
func (h Header) Validate() error {
	var errs []fare.FieldError
	check := func(field, value string, max int) {
		if msg := fare.CheckIdentifier(value, max); msg != "" {
			errs = append(errs, fare.FieldError{Field: field, Message: msg})
		}
	}
	check("region_code", h.RegionCode, fare.MaxRegionCodeLen)
	check("carrier_id", h.CarrierID, fare.MaxIdentifierLen)
	check("unit_id", h.UnitID, fare.MaxIdentifierLen)
	if h.DecimalPlaces < 0 || h.DecimalPlaces > fare.MaxDecimalPlaces {
		errs = append(errs, fare.FieldError{Field: "decimal_places", Message: "must be one of 0, 1, 2, 3"})
	}
	if len(errs) > 0 {
		return &fare.ValidationError{Stage: fare.StageInfo, Errors: errs}
	}
	return nil
}

// EncodeHeader renders "RR;TTTT;DDDD;YYMMDD;V".
func EncodeHeader(h Header) []byte {
	var w writer
	w.header(h)
	return w.Bytes()
}

// EncodeRouteBody renders the R block of a completed route using the
// route's own decimal places.
func EncodeRouteBody(r fare.Route) ([]byte, error) {
	if err := r.ExportReady(); err != nil {
		return nil, err
	}
	var w writer
	w.body(r, r.DecimalPlaces)
	return w.Bytes(), nil
}

// EncodeRoute renders a complete single-route file.
func EncodeRoute(r fare.Route, date time.Time) ([]byte, error) {
	return EncodeBatch([]fare.Route{r}, HeaderFor(r, date))
}

// EncodeBatch renders one header followed by the body of every route in
// order. Prices are scaled by the header's decimal places, which the file
// declares for all of its routes. If any route is incomplete nothing is
// written.
func EncodeBatch(routes []fare.Route, h Header) ([]byte, error) {
	if len(routes) == 0 {
		return nil, ErrEmptyBatch
	}
	for i, r := range routes {
		if err := r.ExportReady(); err != nil {
			return nil, fmt.Errorf("route %d (number %s): %w", i, r.RouteNumber, err)
		}
	}
	var w writer
	w.header(h)
	for _, r := range routes {
		w.body(r, h.DecimalPlaces)
	}
	return w.Bytes(), nil
}

// FileName is the download name of a single-route file.
func FileName(routeNumber string, date time.Time) string {
	return fmt.Sprintf("TRFZ_%s_%s.txt", routeNumber, date.Format(dateLayout))
}

// BulkFileName is the download name of a batch file.
func BulkFileName(routes int, date time.Time) string {
	return fmt.Sprintf("TRFZ_BULK_%s_(%droutes).txt", date.Format(dateLayout), routes)
}

type writer struct {
	bytes.Buffer
}

func (w *writer) header(h Header) {
	w.line(
		zeroPad(h.RegionCode, 2),
		zeroPad(h.CarrierID, 4),
		zeroPad(h.UnitID, 4),
		h.Date.Format(dateLayout),
		strconv.Itoa(h.DecimalPlaces),
	)
}

func (w *writer) body(r fare.Route, decimalPlaces int) {
	w.line(
		"R",
		truncate(r.RouteNumber, maxRouteNumber),
		r.TransportType.Code(),
		strconv.Itoa(len(r.Stops)),
		truncate(r.RouteName, maxDescriptorLen),
		strconv.Itoa(len(r.TariffTables)),
	)

	for i, s := range r.Stops {
		w.line(strconv.Itoa(i), s.Distance.String(), truncate(s.Name, fare.MaxStopNameLen))
	}

	for _, t := range r.TariffTables {
		fields := append([]string{strconv.Itoa(t.TabNumber), t.TypeCode}, t.SeriesCodes...)
		w.line(fields...)
	}

	tabs := r.TabNumbers()
	scale := int32(decimalPlaces)
	fields := make([]string, 0, len(tabs)+2)
	for i := range r.Stops {
		for j := i; j < len(r.Stops); j++ {
			fields = append(fields[:0], strconv.Itoa(i), strconv.Itoa(j))
			for _, tab := range tabs {
				// StringFixed rounds half away from zero.
				fields = append(fields, r.Prices.Price(i, j, tab).Shift(scale).StringFixed(0))
			}
			w.line(fields...)
		}
	}
}

func (w *writer) line(fields ...string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(';')
		}
		w.text(f)
	}
	w.WriteString("\r\n")
}

// text writes s in CP866, substituting characters outside the code page
// and anything that would split a field or a line.
func (w *writer) text(s string) {
	for _, r := range s {
		if r == ';' || unicode.IsControl(r) {
			w.WriteByte(Substitute)
			continue
		}
		if r < utf8.RuneSelf {
			w.WriteByte(byte(r))
			continue
		}
		b, ok := charmap.CodePage866.EncodeRune(r)
		if !ok {
			b = Substitute
		}
		w.WriteByte(b)
	}
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
