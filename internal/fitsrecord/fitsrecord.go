// Package fitsrecord implements the fixed-width FITS-keyword record codec
// the status buffer stores its key/value pairs in: 80-byte records, an
// 8-character left-justified keyword field, an "= " value indicator, and a
// space-padded value field, terminated by a record whose keyword is "END".
package fitsrecord

import (
	"fmt"
	"strconv"
	"strings"
)

// RecordSize is the width of one record.
const RecordSize = 80

const keywordWidth = 8

// FindEnd returns the byte offset of the first "END" record in buf, or -1
// if none exists. buf's length must be a multiple of RecordSize.
func FindEnd(buf []byte) int {
	for off := 0; off+RecordSize <= len(buf); off += RecordSize {
		if strings.HasPrefix(string(buf[off:off+3]), "END") {
			return off
		}
	}
	return -1
}

// Init zeroes the whole of buf, then writes a space-padded END record at
// offset 0. Used the first time a status buffer is attached and no END
// record is found yet.
func Init(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	writeRecord(buf[:RecordSize], "END", "")
}

// Keys returns every keyword present before the END record, in record
// order, skipping blank records.
func Keys(buf []byte) []string {
	var keys []string
	end := FindEnd(buf)
	if end < 0 {
		end = len(buf)
	}
	for off := 0; off < end; off += RecordSize {
		rec := buf[off : off+RecordSize]
		kw := strings.TrimSpace(string(rec[:keywordWidth]))
		if kw == "" {
			continue
		}
		keys = append(keys, kw)
	}
	return keys
}

// Get returns the raw (quote-stripped, trimmed) value string for key, and
// whether it was found.
func Get(buf []byte, key string) (string, bool) {
	off := find(buf, key)
	if off < 0 {
		return "", false
	}
	return parseValue(buf[off : off+RecordSize]), true
}

// GetInt parses key's value as an integer.
func GetInt(buf []byte, key string) (int64, bool, error) {
	v, ok := Get(buf, key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("fitsrecord: key %q is not an integer: %w", key, err)
	}
	return n, true, nil
}

// GetFloat parses key's value as a float.
func GetFloat(buf []byte, key string) (float64, bool, error) {
	v, ok := Get(buf, key)
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, true, fmt.Errorf("fitsrecord: key %q is not a float: %w", key, err)
	}
	return f, true, nil
}

// Put writes key=value, overwriting an existing record in place if key is
// already present, otherwise inserting a new record immediately before the
// END record and shifting every record from there on down by one slot. It
// returns an error if there is no room for the new record (the END record
// would be pushed past the end of buf).
func Put(buf []byte, key, value string) error {
	if off := find(buf, key); off >= 0 {
		writeRecord(buf[off:off+RecordSize], key, value)
		return nil
	}
	end := FindEnd(buf)
	if end < 0 {
		return fmt.Errorf("fitsrecord: no END record found")
	}
	if end+RecordSize > len(buf) {
		return fmt.Errorf("fitsrecord: status buffer full, cannot add key %q", key)
	}
	// Shift the END record (and anything after it, normally nothing) down
	// one slot, then write the new record where END used to be.
	copy(buf[end+RecordSize:end+2*RecordSize], buf[end:end+RecordSize])
	writeRecord(buf[end:end+RecordSize], key, value)
	return nil
}

// PutInt writes an integer-valued record.
func PutInt(buf []byte, key string, value int64) error {
	return Put(buf, key, strconv.FormatInt(value, 10))
}

// PutFloat writes a float-valued record.
func PutFloat(buf []byte, key string, value float64) error {
	return Put(buf, key, strconv.FormatFloat(value, 'G', -1, 64))
}

func find(buf []byte, key string) int {
	key = strings.ToUpper(strings.TrimSpace(key))
	end := FindEnd(buf)
	if end < 0 {
		end = len(buf)
	}
	for off := 0; off < end; off += RecordSize {
		kw := strings.TrimSpace(string(buf[off : off+keywordWidth]))
		if strings.EqualFold(kw, key) {
			return off
		}
	}
	return -1
}

func writeRecord(rec []byte, key, value string) {
	for i := range rec {
		rec[i] = ' '
	}
	key = strings.ToUpper(key)
	if len(key) > keywordWidth {
		key = key[:keywordWidth]
	}
	copy(rec[:keywordWidth], key)
	if key == "END" {
		return
	}
	copy(rec[keywordWidth:keywordWidth+2], "= ")
	v := value
	if needsQuoting(v) {
		v = "'" + v + "'"
	}
	start := keywordWidth + 2
	if start < len(rec) {
		n := copy(rec[start:], v)
		_ = n
	}
}

func needsQuoting(v string) bool {
	if v == "" {
		return true
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return false
	}
	return true
}

func parseValue(rec []byte) string {
	raw := strings.TrimSpace(string(rec[keywordWidth+2:]))
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "="))
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		return strings.TrimSpace(raw[1 : len(raw)-1])
	}
	return raw
}
