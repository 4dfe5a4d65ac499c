package table

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// sqliteConn lazily opens the database, reads never create a missing database file.
type sqliteConn struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

func (c *sqliteConn) open(ctx context.Context, create bool) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db, nil
	}

	var db *sql.DB
	switch backendOf(c.path) {
	case backendLibsql:
		var err error
		db, err = sql.Open("libsql", c.path)
		if err != nil {
			return nil, err
		}
	default:
		_, statErr := os.Stat(c.path)
		if os.IsNotExist(statErr) && !create {
			return nil, fmt.Errorf("open %s: %w", c.path, fs.ErrNotExist)
		}
		var err error
		db, err = sql.Open("sqlite", c.path)
		if err != nil {
			return nil, err
		}
		// a single writer, see https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
		db.SetMaxOpenConns(1)
		_, err = db.ExecContext(ctx, "PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	_, err := db.ExecContext(ctx, Schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	c.db = db
	return db, nil
}

func (c *sqliteConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// SQLiteIdentifierTable stores identifiers in the song_ids table.
type SQLiteIdentifierTable struct {
	*sqliteConn
}

func newSQLiteIdentifierTable(path string) SQLiteIdentifierTable {
	return SQLiteIdentifierTable{sqliteConn: &sqliteConn{path: path}}
}

func (t SQLiteIdentifierTable) Load(ctx context.Context) ([]string, error) {
	db, err := t.open(ctx, false)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "select song_id from song_ids order by song_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		err := rows.Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t SQLiteIdentifierTable) Write(ctx context.Context, ids []string) error {
	db, err := t.open(ctx, true)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from song_ids")
	if err != nil {
		return err
	}
	for _, id := range ids {
		_, err = tx.ExecContext(ctx, "insert or ignore into song_ids (song_id) values (?)", id)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SQLiteSongTable stores songs in the songs table, rows come back in insertion order.
type SQLiteSongTable struct {
	*sqliteConn
}

func newSQLiteSongTable(path string) SQLiteSongTable {
	return SQLiteSongTable{sqliteConn: &sqliteConn{path: path}}
}

func (t SQLiteSongTable) Init(ctx context.Context) error {
	_, err := t.open(ctx, true)
	return err
}

func (t SQLiteSongTable) Identifiers(ctx context.Context) ([]string, error) {
	db, err := t.open(ctx, false)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "select song_id from songs order by rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		err := rows.Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t SQLiteSongTable) Songs(ctx context.Context) ([]Song, error) {
	db, err := t.open(ctx, false)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(
		ctx,
		fmt.Sprintf("select %s from songs order by rowid", strings.Join(Columns, ", ")),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		var s Song
		err := rows.Scan(
			&s.SongID,
			&s.Title,
			&s.Artist,
			&s.MainTheme,
			&s.Lyricist,
			&s.Composer,
			&s.Arranger,
			&s.ReleaseDate,
			&s.CoverURL,
			&s.Lyrics,
		)
		if err != nil {
			return nil, err
		}
		songs = append(songs, s)
	}
	return songs, rows.Err()
}

func (t SQLiteSongTable) Append(ctx context.Context, song Song) error {
	db, err := t.open(ctx, true)
	if err != nil {
		return err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(Columns)), ", ")
	row := song.Row()
	args := make([]any, len(row))
	for i, v := range row {
		args[i] = v
	}
	_, err = db.ExecContext(
		ctx,
		fmt.Sprintf("insert into songs (%s) values (%s)", strings.Join(Columns, ", "), placeholders),
		args...,
	)
	return err
}
