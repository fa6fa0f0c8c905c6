package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"polybackup/internal/archive"
	"polybackup/internal/backup"
	"polybackup/internal/logging"
)

// MySQLAdapter produces a SQL dump of a MySQL database over a native
// connection: CREATE TABLE statements from SHOW CREATE TABLE and row data
// as multi-row INSERTs, streamed table by table into the artifact.
type MySQLAdapter struct {
	logger *logging.Logger
	now    func() time.Time

	// open is swappable so tests can substitute a mock connection.
	open func(dsn string) (*sql.DB, error)
}

// NewMySQLAdapter creates the adapter for MySQL targets.
func NewMySQLAdapter(logger *logging.Logger) *MySQLAdapter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &MySQLAdapter{
		logger: logger,
		now:    time.Now,
		open: func(dsn string) (*sql.DB, error) {
			return sql.Open("mysql", dsn)
		},
	}
}

// Kind implements backup.Adapter.
func (a *MySQLAdapter) Kind() backup.TargetKind {
	return backup.KindMySQL
}

// Backup implements backup.Adapter.
func (a *MySQLAdapter) Backup(ctx context.Context, target backup.Target, outputDir string) (*backup.Result, error) {
	db, err := a.open(mysqlDSN(target.Connection))
	if err != nil {
		return nil, backup.NewDatabaseError(fmt.Sprintf("failed to open connection to %s", target.Connection.Database), err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, backup.NewSourceNotFoundError(fmt.Sprintf("mysql database %s unreachable", target.Connection.Database), err)
	}

	algorithm, err := dumpCompression(target)
	if err != nil {
		return nil, backup.NewWriteError("invalid compression configuration", err)
	}
	filename := archive.ArtifactName(target.Name, ".sql"+algorithm.Suffix(), a.now())
	destPath := filepath.Join(outputDir, filename)

	out, err := os.Create(destPath)
	if err != nil {
		return nil, backup.NewWriteError(fmt.Sprintf("failed to create %s", destPath), err)
	}

	compressor, err := archive.NewCompressingWriter(out, algorithm, 0)
	if err != nil {
		out.Close()
		return nil, backup.NewWriteError("failed to initialize compressor", err)
	}
	counter := &countingWriter{w: compressor}

	dumpErr := a.dump(ctx, db, target, counter)

	if err := compressor.Close(); err != nil && dumpErr == nil {
		dumpErr = backup.NewWriteError("failed to flush dump", err)
	}
	if err := out.Close(); err != nil && dumpErr == nil {
		dumpErr = backup.NewWriteError("failed to close dump", err)
	}

	if dumpErr != nil {
		os.Remove(destPath)
		return nil, dumpErr
	}

	return &backup.Result{
		OutputFile: filename,
		SizeBytes:  counter.n,
		FileCount:  1,
	}, nil
}

// dump writes the full SQL dump for every table admitted by the target's
// table filter. Tables stream one at a time; a table's rows are never
// buffered beyond the row currently being rendered.
func (a *MySQLAdapter) dump(ctx context.Context, db *sql.DB, target backup.Target, w io.Writer) error {
	database := target.Connection.Database

	fmt.Fprintf(w, "-- polybackup dump of %s\n-- generated at %s\n\n", database, a.now().UTC().Format(time.RFC3339))

	tables, err := a.listTables(ctx, db)
	if err != nil {
		return backup.NewDatabaseError(fmt.Sprintf("failed to list tables in %s", database), err)
	}

	for _, table := range tables {
		if len(target.TableFilter) > 0 && !archive.Match(table, target.TableFilter) {
			a.logger.Debugf("Skipping table %s: not matched by table filter", table)
			continue
		}

		if target.IncludeSchema {
			if err := a.dumpSchema(ctx, db, table, w); err != nil {
				return backup.NewDatabaseError(fmt.Sprintf("failed to dump schema of %s", table), err)
			}
		}
		if target.IncludeData {
			if err := a.dumpData(ctx, db, table, w); err != nil {
				return backup.NewDatabaseError(fmt.Sprintf("failed to dump data of %s", table), err)
			}
		}
	}

	return nil
}

func (a *MySQLAdapter) listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, rows.Err()
}

func (a *MySQLAdapter) dumpSchema(ctx context.Context, db *sql.DB, table string, w io.Writer) error {
	var name, ddl string
	row := db.QueryRowContext(ctx, fmt.Sprintf("SHOW CREATE TABLE `%s`", table))
	if err := row.Scan(&name, &ddl); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "DROP TABLE IF EXISTS `%s`;\n%s;\n\n", table, ddl)
	return err
}

func (a *MySQLAdapter) dumpData(ctx context.Context, db *sql.DB, table string, w io.Writer) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM `%s`", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	values := make([]sql.RawBytes, len(columns))
	scanArgs := make([]interface{}, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return err
		}

		rendered := make([]string, len(values))
		for i, value := range values {
			rendered[i] = quoteSQLValue(value)
		}

		if _, err := fmt.Fprintf(w, "INSERT INTO `%s` VALUES (%s);\n", table, strings.Join(rendered, ", ")); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = fmt.Fprintln(w)
	return err
}

// quoteSQLValue renders one column value as a SQL literal. Everything
// non-NULL is emitted as a quoted string with MySQL escaping, which the
// server coerces back to the column type on restore.
func quoteSQLValue(value sql.RawBytes) string {
	if value == nil {
		return "NULL"
	}

	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"'", "\\'",
		"\n", "\\n",
		"\r", "\\r",
		"\x00", "\\0",
	)
	return "'" + replacer.Replace(string(value)) + "'"
}

// mysqlDSN renders a go-sql-driver DSN from a connection spec.
func mysqlDSN(conn backup.ConnectionSpec) string {
	host := conn.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := conn.Port
	if port == 0 {
		port = 3306
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", conn.User, conn.Password, host, port, conn.Database)
}
