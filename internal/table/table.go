package table

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
)

// IdentifierColumn is the only column of an identifier table and the key column of a song table.
const IdentifierColumn = "song_id"

// Columns is the fixed column order of a song table.
var Columns = []string{
	"song_id",
	"title",
	"artist",
	"main_theme",
	"lyricist",
	"composer",
	"arranger",
	"release_date",
	"cover_url",
	"lyrics",
}

// Song is one row of a song table. Empty strings mean the value was absent on the page.
type Song struct {
	SongID      string
	Title       string
	Artist      string
	MainTheme   string
	Lyricist    string
	Composer    string
	Arranger    string
	ReleaseDate string
	CoverURL    string
	Lyrics      string
}

// Row renders s in Columns order.
func (s Song) Row() []string {
	return []string{
		s.SongID,
		s.Title,
		s.Artist,
		s.MainTheme,
		s.Lyricist,
		s.Composer,
		s.Arranger,
		s.ReleaseDate,
		s.CoverURL,
		s.Lyrics,
	}
}

// songFromRow builds a Song from a row whose columns are described by index.
// Columns missing from index are left empty.
func songFromRow(row []string, index map[string]int) Song {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	return Song{
		SongID:      get("song_id"),
		Title:       get("title"),
		Artist:      get("artist"),
		MainTheme:   get("main_theme"),
		Lyricist:    get("lyricist"),
		Composer:    get("composer"),
		Arranger:    get("arranger"),
		ReleaseDate: get("release_date"),
		CoverURL:    get("cover_url"),
		Lyrics:      get("lyrics"),
	}
}

// IdentifierTable persists a set of song identifiers.
type IdentifierTable interface {
	io.Closer
	// Load returns the stored identifiers, an error satisfying errors.Is(err, fs.ErrNotExist)
	// is returned when nothing has been stored yet.
	Load(ctx context.Context) ([]string, error)
	// Write replaces the stored identifiers with ids.
	Write(ctx context.Context, ids []string) error
}

// SongTable is an append-only table of songs.
type SongTable interface {
	io.Closer
	// Init creates the table and its header when it does not exist or is empty.
	Init(ctx context.Context) error
	// Identifiers returns the song_id of every stored row, in storage order.
	Identifiers(ctx context.Context) ([]string, error)
	// Songs returns every stored row, in storage order.
	Songs(ctx context.Context) ([]Song, error)
	// Append durably stores a single row.
	Append(ctx context.Context, song Song) error
}

var ErrNoIdentifierColumn = errors.New("table has no song_id column")

// IsNotExist reports whether err means the table has not been created yet.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

type backend int

const (
	backendCSV backend = iota
	backendSQLite
	backendLibsql
)

func backendOf(path string) backend {
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "libsql://") {
		return backendLibsql
	}
	switch filepath.Ext(lower) {
	case ".db", ".sqlite", ".sqlite3":
		return backendSQLite
	}
	return backendCSV
}

// OpenIdentifiers returns the identifier table stored at path. Paths ending in .db, .sqlite or
// .sqlite3 and libsql:// urls are stored in sqlite, everything else is a csv file.
func OpenIdentifiers(path string) (IdentifierTable, error) {
	if path == "" {
		return nil, fmt.Errorf("open identifier table: empty path")
	}
	switch backendOf(path) {
	case backendSQLite, backendLibsql:
		return newSQLiteIdentifierTable(path), nil
	}
	return CSVIdentifierTable{Path: path}, nil
}

// OpenSongs returns the song table stored at path, the backend is chosen like OpenIdentifiers.
func OpenSongs(path string) (SongTable, error) {
	if path == "" {
		return nil, fmt.Errorf("open song table: empty path")
	}
	switch backendOf(path) {
	case backendSQLite, backendLibsql:
		return newSQLiteSongTable(path), nil
	}
	return CSVSongTable{Path: path}, nil
}
