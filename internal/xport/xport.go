// Package xport reads SAS transport (XPORT version 5) files, the container
// the survey publishes its data files in. The decoded columns are returned
// as datareader Series so downstream code handles transport and SAS7BDAT
// sources the same way.
//
// The format is a sequence of 80-byte card-image records: a library header,
// a member header carrying the NAMESTR entry size, 140-byte NAMESTR entries
// describing each variable, an OBS header, then fixed-width row data padded
// with blanks to an 80-byte boundary. Numeric fields are truncated IBM
// hexadecimal floating-point values.
package xport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kshedden/datareader"
)

const recordLen = 80

const (
	libraryHeader = "HEADER RECORD*******LIBRARY HEADER RECORD!!!!!!!"
	memberHeader  = "HEADER RECORD*******MEMBER "
	dscrptrHeader = "HEADER RECORD*******DSCRPTR HEADER RECORD!!!!!!!"
	namestrHeader = "HEADER RECORD*******NAMESTR HEADER RECORD!!!!!!!"
	obsHeader     = "HEADER RECORD*******OBS     HEADER RECORD!!!!!!!"
)

// variable describes one column, decoded from its NAMESTR entry.
type variable struct {
	name    string
	label   string
	numeric bool
	length  int
	pos     int
}

// A Reader reads data from an XPORT version 5 file. Only the first member
// of the library is read; the survey ships one dataset per file.
type Reader struct {
	// The name of the dataset, from the member descriptor record.
	Name string

	vars   []variable
	rowLen int
	nrow   int

	data []byte
	row  int
}

// NewReader parses the transport headers and positions the reader at the
// first data row.
func NewReader(r io.ReadSeeker) (*Reader, error) {
	xr := new(Reader)
	if err := xr.readHeaders(r); err != nil {
		return nil, err
	}
	return xr, nil
}

func readRecord(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf[0:recordLen]); err != nil {
		return err
	}
	return nil
}

func expectRecord(r io.Reader, buf []byte, prefix, what string) error {
	if err := readRecord(r, buf); err != nil {
		return fmt.Errorf("read %s record: %w", what, err)
	}
	if !bytes.HasPrefix(buf[0:recordLen], []byte(prefix)) {
		return fmt.Errorf("malformed %s record: %q", what, buf[0:recordLen])
	}
	return nil
}

func (xr *Reader) readHeaders(r io.ReadSeeker) error {
	buf := make([]byte, recordLen)

	if err := expectRecord(r, buf, libraryHeader, "library header"); err != nil {
		return err
	}
	// Two real header records follow the library header: SAS symbols and
	// creation timestamps, which we do not need.
	for i := 0; i < 2; i++ {
		if err := readRecord(r, buf); err != nil {
			return fmt.Errorf("read library real header: %w", err)
		}
	}

	if err := expectRecord(r, buf, memberHeader, "member header"); err != nil {
		return err
	}
	// The NAMESTR entry size is the final integer on the member header
	// record: 140, or 136 for files written on VAX.
	trimmed := strings.TrimRight(string(buf[0:recordLen]), " ")
	if len(trimmed) < 4 {
		return fmt.Errorf("malformed member header record: %q", trimmed)
	}
	nsize, err := strconv.Atoi(trimmed[len(trimmed)-4:])
	if err != nil || (nsize != 140 && nsize != 136) {
		return fmt.Errorf("unsupported NAMESTR size in member header: %q", trimmed)
	}

	if err := expectRecord(r, buf, dscrptrHeader, "member descriptor header"); err != nil {
		return err
	}
	// First member real header: "SAS     <dsname> SASDATA ...".
	if err := readRecord(r, buf); err != nil {
		return fmt.Errorf("read member descriptor: %w", err)
	}
	xr.Name = strings.TrimSpace(string(buf[8:16]))
	// Second member real header (modified timestamp, dataset label).
	if err := readRecord(r, buf); err != nil {
		return fmt.Errorf("read member descriptor: %w", err)
	}

	if err := expectRecord(r, buf, namestrHeader, "NAMESTR header"); err != nil {
		return err
	}
	nvar, err := strconv.Atoi(string(buf[54:58]))
	if err != nil || nvar <= 0 {
		return fmt.Errorf("malformed variable count in NAMESTR header: %q", buf[48:58])
	}

	// NAMESTR entries are packed back to back and blank-padded to the next
	// 80-byte boundary.
	total := nvar * nsize
	if pad := total % recordLen; pad != 0 {
		total += recordLen - pad
	}
	nbuf := make([]byte, total)
	if _, err := io.ReadFull(r, nbuf); err != nil {
		return fmt.Errorf("read NAMESTR entries: %w", err)
	}
	xr.vars = make([]variable, nvar)
	for i := 0; i < nvar; i++ {
		v, err := parseNamestr(nbuf[i*nsize : (i+1)*nsize])
		if err != nil {
			return fmt.Errorf("variable %d: %w", i+1, err)
		}
		xr.vars[i] = v
		xr.rowLen += v.length
	}
	if xr.rowLen == 0 {
		return fmt.Errorf("zero observation length")
	}

	if err := expectRecord(r, buf, obsHeader, "OBS header"); err != nil {
		return err
	}

	// Everything to EOF is row data. Trailing blanks pad the final 80-byte
	// record; stripping them before dividing by the row length yields the
	// true row count even when the last row's own character fields end in
	// blanks.
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read observations: %w", err)
	}
	stripped := len(bytes.TrimRight(data, " "))
	xr.nrow = (stripped + xr.rowLen - 1) / xr.rowLen
	if xr.nrow*xr.rowLen > len(data) {
		return fmt.Errorf("truncated final observation: have %d bytes, need %d", len(data), xr.nrow*xr.rowLen)
	}
	xr.data = data
	return nil
}

// parseNamestr decodes one NAMESTR entry. All integers are big-endian.
func parseNamestr(b []byte) (variable, error) {
	var v variable
	switch binary.BigEndian.Uint16(b[0:2]) {
	case 1:
		v.numeric = true
	case 2:
		v.numeric = false
	default:
		return v, fmt.Errorf("unknown variable type %d", binary.BigEndian.Uint16(b[0:2]))
	}
	v.length = int(binary.BigEndian.Uint16(b[4:6]))
	v.name = strings.TrimSpace(string(b[8:16]))
	v.label = strings.TrimSpace(string(b[16:56]))
	v.pos = int(binary.BigEndian.Uint32(b[84:88]))
	if v.numeric && (v.length < 2 || v.length > 8) {
		return v, fmt.Errorf("invalid numeric length %d for %s", v.length, v.name)
	}
	if v.length <= 0 {
		return v, fmt.Errorf("invalid length %d for %s", v.length, v.name)
	}
	return v, nil
}

// ColumnNames returns the names of the columns.
func (xr *Reader) ColumnNames() []string {
	names := make([]string, len(xr.vars))
	for i, v := range xr.vars {
		names[i] = v.name
	}
	return names
}

// ColumnLabels returns the descriptive labels of the columns.
func (xr *Reader) ColumnLabels() []string {
	labels := make([]string, len(xr.vars))
	for i, v := range xr.vars {
		labels[i] = v.label
	}
	return labels
}

// RowCount returns the number of rows in the dataset.
func (xr *Reader) RowCount() int {
	return xr.nrow
}

// Read reads and returns up to numRows rows as one Series per column.
// Numeric columns become float64 Series, character columns string Series;
// both carry missing masks. If numRows is negative the remaining rows are
// read. After the last row has been consumed, Read returns (nil, nil).
func (xr *Reader) Read(numRows int) ([]*datareader.Series, error) {
	remaining := xr.nrow - xr.row
	if remaining <= 0 {
		return nil, nil
	}
	if numRows < 0 || numRows > remaining {
		numRows = remaining
	}

	ncol := len(xr.vars)
	numData := make([][]float64, ncol)
	strData := make([][]string, ncol)
	miss := make([][]bool, ncol)
	for j, v := range xr.vars {
		if v.numeric {
			numData[j] = make([]float64, numRows)
		} else {
			strData[j] = make([]string, numRows)
		}
		miss[j] = make([]bool, numRows)
	}

	for i := 0; i < numRows; i++ {
		row := xr.data[(xr.row+i)*xr.rowLen : (xr.row+i+1)*xr.rowLen]
		off := 0
		for j, v := range xr.vars {
			field := row[off : off+v.length]
			off += v.length
			if v.numeric {
				x, ok := decodeNumeric(field)
				if !ok {
					numData[j][i] = math.NaN()
					miss[j][i] = true
				} else {
					numData[j][i] = x
				}
			} else {
				strData[j][i] = strings.TrimRight(string(field), " ")
			}
		}
	}
	xr.row += numRows

	series := make([]*datareader.Series, ncol)
	for j, v := range xr.vars {
		var err error
		if v.numeric {
			series[j], err = datareader.NewSeries(v.name, numData[j], miss[j])
		} else {
			series[j], err = datareader.NewSeries(v.name, strData[j], miss[j])
		}
		if err != nil {
			return nil, fmt.Errorf("build series %s: %w", v.name, err)
		}
	}
	return series, nil
}

// decodeNumeric converts a truncated IBM hexadecimal float field to IEEE 754.
// A field whose first byte is '.', '_', or 'A'-'Z' with the remaining bytes
// zero encodes a missing value (the letters are SAS special missing codes).
func decodeNumeric(field []byte) (float64, bool) {
	lead := field[0]
	if lead == '.' || lead == '_' || (lead >= 'A' && lead <= 'Z') {
		zero := true
		for _, b := range field[1:] {
			if b != 0 {
				zero = false
				break
			}
		}
		if zero {
			return 0, false
		}
	}

	var full [8]byte
	copy(full[:], field)
	bits := binary.BigEndian.Uint64(full[:])
	if bits == 0 {
		return 0, true
	}

	neg := bits&(1<<63) != 0
	exp := int((bits >> 56) & 0x7f)
	frac := bits & 0x00ffffffffffffff
	if frac == 0 {
		return 0, true
	}

	// value = 0.frac * 16^(exp-64), with frac holding 56 bits.
	x := math.Ldexp(float64(frac), 4*(exp-64)-56)
	if neg {
		x = -x
	}
	return x, true
}
