package table

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvScan is a csv file read record by record.
type csvScan struct {
	records [][]string
	// end is the byte offset right after the last record terminated by a newline.
	end  int64
	size int64
}

// torn reports whether the file ends with an incomplete record, as left behind
// by a process killed in the middle of an append.
func (s csvScan) torn() bool { return s.end < s.size }

// scanCSV reads the csv file at path, skipping a leading byte order mark. Only
// records terminated by a newline are kept. A parse error in the final record
// marks the tail as torn, a parse error followed by more records is returned.
func scanCSV(path string) (csvScan, error) {
	f, err := os.Open(path)
	if err != nil {
		return csvScan{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return csvScan{}, err
	}
	scan := csvScan{size: info.Size()}
	if scan.size == 0 {
		return scan, nil
	}

	last := make([]byte, 1)
	_, err = f.ReadAt(last, scan.size-1)
	if err != nil {
		return csvScan{}, fmt.Errorf("read %s: %w", path, err)
	}
	terminated := last[0] == '\n'

	br := bufio.NewReader(f)
	head, err := br.Peek(len(utf8BOM))
	if err != nil && !errors.Is(err, io.EOF) {
		return csvScan{}, fmt.Errorf("read %s: %w", path, err)
	}
	if bytes.Equal(head, utf8BOM) {
		_, err = br.Discard(len(utf8BOM))
		if err != nil {
			return csvScan{}, fmt.Errorf("read %s: %w", path, err)
		}
		scan.end = int64(len(utf8BOM))
	}
	start := scan.end

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return scan, nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			if _, next := r.Read(); errors.Is(next, io.EOF) {
				return scan, nil
			}
			return csvScan{}, fmt.Errorf("read %s: %w", path, err)
		}
		if err != nil {
			return csvScan{}, fmt.Errorf("read %s: %w", path, err)
		}
		offset := start + r.InputOffset()
		if offset >= scan.size && !terminated {
			return scan, nil
		}
		scan.records = append(scan.records, record)
		scan.end = offset
	}
}

// readCSV returns the header index and data rows of the csv file at path.
// An empty file yields a nil index and no rows. A torn last row is dropped.
func readCSV(path string) (map[string]int, [][]string, error) {
	scan, err := scanCSV(path)
	if err != nil {
		return nil, nil, err
	}
	if scan.torn() {
		slog.Warn("ignoring incomplete last row", "path", path, "bytes", scan.size-scan.end)
	}
	records := scan.records
	if len(records) == 0 {
		return nil, nil, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		index[col] = i
	}
	return index, records[1:], nil
}

func column(index map[string]int, rows [][]string, col string) ([]string, error) {
	if index == nil {
		return nil, nil
	}
	i, ok := index[col]
	if !ok {
		return nil, ErrNoIdentifierColumn
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if i >= len(row) {
			continue
		}
		out = append(out, row[i])
	}
	return out, nil
}

// CSVIdentifierTable is a single column csv file with a song_id header.
type CSVIdentifierTable struct {
	Path string
}

func (t CSVIdentifierTable) Load(ctx context.Context) ([]string, error) {
	index, rows, err := readCSV(t.Path)
	if err != nil {
		return nil, err
	}
	return column(index, rows, IdentifierColumn)
}

// Write rewrites the whole file through a temporary file, so a crash never leaves
// a half written identifier table behind.
func (t CSVIdentifierTable) Write(ctx context.Context, ids []string) error {
	dir := filepath.Dir(t.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(t.Path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	err = w.Write([]string{IdentifierColumn})
	if err != nil {
		tmp.Close()
		return err
	}
	for _, id := range ids {
		err = w.Write([]string{id})
		if err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), t.Path)
}

func (CSVIdentifierTable) Close() error { return nil }

// CSVSongTable is a csv file starting with a UTF-8 byte order mark and a header
// row in Columns order, rows are only ever appended.
type CSVSongTable struct {
	Path string
}

// Init writes the header to a missing or empty file and cuts a torn last row
// off an existing one, so appends always start on a fresh line.
func (t CSVSongTable) Init(ctx context.Context) error {
	scan, err := scanCSV(t.Path)
	var parseErr *csv.ParseError
	switch {
	case errors.As(err, &parseErr):
		// broken before its last row, nothing here can repair it
		return nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return err
	case err == nil && len(scan.records) > 0:
		if !scan.torn() {
			return nil
		}
		slog.Warn("truncating incomplete last row", "path", t.Path, "bytes", scan.size-scan.end)
		return os.Truncate(t.Path, scan.end)
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	err = w.Write(Columns)
	if err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return os.WriteFile(t.Path, buf.Bytes(), 0644)
}

func (t CSVSongTable) Identifiers(ctx context.Context) ([]string, error) {
	index, rows, err := readCSV(t.Path)
	if err != nil {
		return nil, err
	}
	return column(index, rows, IdentifierColumn)
}

func (t CSVSongTable) Songs(ctx context.Context) ([]Song, error) {
	index, rows, err := readCSV(t.Path)
	if err != nil {
		return nil, err
	}
	if index == nil {
		return nil, nil
	}
	if _, ok := index[IdentifierColumn]; !ok {
		return nil, ErrNoIdentifierColumn
	}
	songs := make([]Song, 0, len(rows))
	for _, row := range rows {
		songs = append(songs, songFromRow(row, index))
	}
	return songs, nil
}

// Append writes one row. A failed write is rolled back to the previous end of
// the file.
func (t CSVSongTable) Append(ctx context.Context, song Song) error {
	f, err := os.OpenFile(t.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	rollback := func(err error) error {
		f.Close()
		if terr := os.Truncate(t.Path, info.Size()); terr != nil {
			return errors.Join(err, terr)
		}
		return err
	}

	w := csv.NewWriter(f)
	err = w.Write(song.Row())
	if err != nil {
		return rollback(err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return rollback(err)
	}
	if err := f.Sync(); err != nil {
		return rollback(err)
	}
	return f.Close()
}

func (CSVSongTable) Close() error { return nil }
