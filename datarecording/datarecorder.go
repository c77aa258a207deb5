// Package datarecording stores what happens in a machine into an SQLite
// database for later analysis.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// ErrUnknownTable is returned when data is inserted into a table that was
// not created.
var ErrUnknownTable = errors.New("datarecording: unknown table")

// DataRecorder is a backend that can record and store data.
type DataRecorder interface {
	// CreateTable creates a table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry of the type the table was created with.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of the created tables.
	ListTables() []string

	// Flush writes every buffered entry into the database.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

// New creates a DataRecorder writing to path.sqlite3. An empty path picks a
// unique name. The file must not exist yet. Buffered entries are flushed when
// the program exits through atexit.
func New(path string) (DataRecorder, error) {
	if path == "" {
		path = "multiemu_recording_" + xid.New().String()
	}

	filename := path + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("datarecording: file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("datarecording: %w", err)
	}

	w := newWriter(db)
	w.filename = filename

	atexit.Register(func() { _ = w.Flush() })

	return w, nil
}

// NewWithDB creates a DataRecorder writing to db.
func NewWithDB(db *sql.DB) DataRecorder {
	w := newWriter(db)

	atexit.Register(func() { _ = w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqliteWriter is the writer that writes data into SQLite database
type sqliteWriter struct {
	*sql.DB

	filename   string
	tables     map[string]*table
	order      []string
	batchSize  int
	entryCount int
}

func newWriter(db *sql.DB) *sqliteWriter {
	return &sqliteWriter{
		DB:        db,
		tables:    make(map[string]*table),
		batchSize: 100000,
	}
}

// Filename returns the database file, if the recorder created one.
func (t *sqliteWriter) Filename() string {
	return t.filename
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// fieldNames lists the exported fields of a struct type, which become the
// columns of its table.
func fieldNames(structType reflect.Type) ([]string, error) {
	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("datarecording: %s is not a struct", structType)
	}

	names := make([]string, 0, structType.NumField())

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if !field.IsExported() {
			return nil, fmt.Errorf("datarecording: field %s of %s is not exported",
				field.Name, structType)
		}

		if !isAllowedKind(field.Type.Kind()) {
			return nil, fmt.Errorf("datarecording: field %s of %s has kind %s",
				field.Name, structType, field.Type.Kind())
		}

		names = append(names, field.Name)
	}

	return names, nil
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	structType := reflect.TypeOf(sampleEntry)
	if structType == nil {
		return errors.New("datarecording: nil sample entry")
	}

	names, err := fieldNames(structType)
	if err != nil {
		return err
	}

	if _, dup := t.tables[tableName]; dup {
		return fmt.Errorf("datarecording: table %s created twice", tableName)
	}

	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + strings.Join(names, ", \n\t") + "\n" + `);`
	if _, err := t.Exec(createTableSQL); err != nil {
		return fmt.Errorf("datarecording: creating %s: %w", tableName, err)
	}

	t.tables[tableName] = &table{structType: structType}
	t.order = append(t.order, tableName)

	return nil
}

func (t *sqliteWriter) InsertData(tableName string, entry any) error {
	table, exists := t.tables[tableName]
	if !exists {
		return fmt.Errorf("%w %s", ErrUnknownTable, tableName)
	}

	if reflect.TypeOf(entry) != table.structType {
		return fmt.Errorf("datarecording: table %s stores %s, got %T",
			tableName, table.structType, entry)
	}

	table.entries = append(table.entries, entry)

	t.entryCount++
	if t.entryCount >= t.batchSize {
		return t.Flush()
	}

	return nil
}

func (t *sqliteWriter) ListTables() []string {
	return append([]string(nil), t.order...)
}

func (t *sqliteWriter) Flush() error {
	if t.entryCount == 0 {
		return nil
	}

	tx, err := t.Begin()
	if err != nil {
		return fmt.Errorf("datarecording: %w", err)
	}

	for _, tableName := range t.order {
		table := t.tables[tableName]
		if len(table.entries) == 0 {
			continue
		}

		if err := insert(tx, tableName, table); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("datarecording: %w", err)
	}

	for _, table := range t.tables {
		table.entries = nil
	}

	t.entryCount = 0

	return nil
}

func insert(tx *sql.Tx, tableName string, table *table) error {
	n := table.structType.NumField()
	marks := strings.TrimSuffix(strings.Repeat("?, ", n), ", ")

	stmt, err := tx.Prepare("INSERT INTO " + tableName + " VALUES (" + marks + ")")
	if err != nil {
		return fmt.Errorf("datarecording: preparing %s: %w", tableName, err)
	}
	defer stmt.Close()

	args := make([]any, n)

	for _, entry := range table.entries {
		v := reflect.ValueOf(entry)
		for i := range args {
			args[i] = v.Field(i).Interface()
		}

		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("datarecording: inserting into %s: %w", tableName, err)
		}
	}

	return nil
}

func (t *sqliteWriter) Close() error {
	return errors.Join(t.Flush(), t.DB.Close())
}
