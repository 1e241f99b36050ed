package export

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Supported output formats.
const (
	FormatParquet = "parquet"
	FormatXLSX    = "xlsx"
)

// encodeParquet writes records as a single parquet file.
func encodeParquet[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[T](&buf)
	if _, err := w.Write(records); err != nil {
		return nil, eris.Wrap(err, "export: write parquet rows")
	}
	if err := w.Close(); err != nil {
		return nil, eris.Wrap(err, "export: close parquet writer")
	}
	return buf.Bytes(), nil
}

// encodeXLSX writes records to a workbook with one sheet. The header row
// uses the parquet column names so both formats share a schema.
func encodeXLSX[T any](sheetName string, records []T) ([]byte, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return nil, eris.Wrapf(err, "export: add sheet %s", sheetName)
	}

	typ := reflect.TypeFor[T]()
	header := sheet.AddRow()
	for i := range typ.NumField() {
		header.AddCell().SetString(typ.Field(i).Tag.Get("parquet"))
	}

	for _, rec := range records {
		v := reflect.ValueOf(rec)
		row := sheet.AddRow()
		for i := range v.NumField() {
			cell := row.AddCell()
			switch fv := v.Field(i); fv.Kind() {
			case reflect.String:
				cell.SetString(fv.String())
			case reflect.Int32, reflect.Int64, reflect.Int:
				cell.SetInt64(fv.Int())
			case reflect.Float64:
				cell.SetFloat(fv.Float())
			default:
				cell.SetString(fmt.Sprint(fv.Interface()))
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "export: write xlsx")
	}
	return buf.Bytes(), nil
}

// encode dispatches on format.
func encode[T any](format, table string, records []T) ([]byte, error) {
	switch format {
	case FormatParquet:
		return encodeParquet(records)
	case FormatXLSX:
		return encodeXLSX(table, records)
	default:
		return nil, eris.Errorf("export: unsupported format %q", format)
	}
}
