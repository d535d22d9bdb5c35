package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

// Source is a header plus a stream of positional rows. Rows and Errs are both
// closed when the source is exhausted; at most one error is sent.
type Source struct {
	Header []string
	Rows   <-chan []string
	Errs   <-chan error
	cancel context.CancelFunc
	close  func() error
}

// Stop tells the producer to quit without the consumer draining Rows. The
// producer then closes Rows and Errs.
func (s *Source) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Close stops the producer and releases the underlying file, if any.
func (s *Source) Close() error {
	s.Stop()
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Options configures how files are opened.
type Options struct {
	Delimiter rune   // CSV delimiter; default ',' or '\t' for .tsv
	Charset   string // CSV source encoding, e.g. "windows-1252"; default UTF-8
	Sheet     string // XLSX sheet name; default first sheet
	SkipRows  int    // XLSX rows above the header
}

// Open picks a reader by file extension.
func Open(ctx context.Context, path string, opts Options) (*Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return openCSVFile(ctx, path, opts)
	case ".tsv":
		if opts.Delimiter == 0 {
			opts.Delimiter = '\t'
		}
		return openCSVFile(ctx, path, opts)
	case ".xlsx":
		return OpenXLSX(ctx, path, opts)
	case ".shp":
		return OpenShapefile(ctx, path)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

func openCSVFile(ctx context.Context, path string, opts Options) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	src, err := OpenCSV(ctx, f, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	src.close = f.Close
	return src, nil
}

// OpenCSV reads the header row synchronously and streams the rest.
func OpenCSV(ctx context.Context, r io.Reader, opts Options) (*Source, error) {
	if opts.Charset != "" && !strings.EqualFold(opts.Charset, "utf-8") {
		enc, err := htmlindex.Get(opts.Charset)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: unsupported charset %q", opts.Charset)
		}
		r = enc.NewDecoder().Reader(r)
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: empty file")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	ctx, cancel := context.WithCancel(ctx)
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer cancel()
		defer close(rowCh)
		defer close(errCh)

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return &Source{Header: header, Rows: rowCh, Errs: errCh, cancel: cancel}, nil
}

// OpenXLSX loads the workbook and streams the rows below the header.
func OpenXLSX(ctx context.Context, path string, opts Options) (*Source, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) <= opts.SkipRows {
		return nil, eris.Errorf("xlsx: sheet %q has no header row", sheet.Name)
	}

	header := rowToStrings(sheet.Rows[opts.SkipRows])
	body := sheet.Rows[opts.SkipRows+1:]

	ctx, cancel := context.WithCancel(ctx)
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer cancel()
		defer close(rowCh)
		defer close(errCh)

		for _, row := range body {
			if row == nil {
				continue
			}
			select {
			case rowCh <- rowToStrings(row):
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xlsx: context cancelled")
				return
			}
		}
	}()

	return &Source{Header: header, Rows: rowCh, Errs: errCh, cancel: cancel}, nil
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// OpenShapefile streams the attribute table of a parcel or point shapefile.
// When the table has no coordinate columns, the center of each shape's
// bounding box is appended as latitude and longitude.
func OpenShapefile(ctx context.Context, path string) (*Source, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}

	fields := reader.Fields()
	header := make([]string, 0, len(fields)+2)
	hasLat, hasLng := false, false
	for _, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		switch normalizeHeader(name) {
		case "lat", "latitude":
			hasLat = true
		case "lng", "lon", "long", "longitude":
			hasLng = true
		}
		header = append(header, name)
	}
	derive := !hasLat && !hasLng
	if derive {
		header = append(header, "latitude", "longitude")
	}

	ctx, cancel := context.WithCancel(ctx)
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer cancel()
		defer close(rowCh)
		defer close(errCh)

		var skipped int
		for reader.Next() {
			n, shape := reader.Shape()

			row := make([]string, 0, len(header))
			for i := range fields {
				row = append(row, strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00")))
			}
			if derive {
				if shape == nil {
					skipped++
					zap.L().Debug("shapefile: record without geometry", zap.Int("record", n))
					row = append(row, "", "")
				} else {
					box := shape.BBox()
					row = append(row,
						formatCoord((box.MinY+box.MaxY)/2),
						formatCoord((box.MinX+box.MaxX)/2),
					)
				}
			}

			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "shapefile: context cancelled")
				return
			}
		}

		if skipped > 0 {
			zap.L().Info("shapefile: records without geometry",
				zap.String("path", path),
				zap.Int("skipped", skipped),
			)
		}
	}()

	return &Source{Header: header, Rows: rowCh, Errs: errCh, cancel: cancel, close: reader.Close}, nil
}

// formatCoord renders a derived coordinate to six decimals.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
