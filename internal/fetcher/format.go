package fetcher

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// Format is a tabular feed encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrLegacyXLS is returned for BIFF (.xls) workbooks, which no decoder here reads.
var ErrLegacyXLS = eris.New("legacy .xls workbook is not supported; publish the feed as .xlsx or .csv")

var (
	zipMagic = []byte("PK\x03\x04")
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectFormat identifies the feed encoding from the payload's magic bytes,
// falling back to the URL extension and finally to CSV.
func DetectFormat(rawURL string, data []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(data, cfbMagic):
		return "", ErrLegacyXLS
	}

	ext := ""
	if u, err := url.Parse(rawURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	switch ext {
	case ".xlsx":
		return FormatXLSX, nil
	case ".xls":
		return "", ErrLegacyXLS
	}
	return FormatCSV, nil
}

// DecodeOptions bundles the per-format decoder settings.
type DecodeOptions struct {
	XLSX XLSXOptions
	CSV  CSVOptions
}

// Decode parses a feed payload into rows. FormatAuto (or "") sniffs the payload.
func Decode(rawURL string, data []byte, format Format, opts DecodeOptions) ([][]string, error) {
	if format == "" || format == FormatAuto {
		var err error
		format, err = DetectFormat(rawURL, data)
		if err != nil {
			return nil, err
		}
	}

	switch format {
	case FormatXLSX:
		return ReadXLSX(data, opts.XLSX)
	case FormatCSV:
		return ReadCSV(bytes.NewReader(data), opts.CSV)
	default:
		return nil, eris.Errorf("unknown feed format %q", format)
	}
}
