package adapter

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"polybackup/internal/backup"
)

func mockedMySQLAdapter(t *testing.T) (*MySQLAdapter, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}

	adapter := NewMySQLAdapter(nil)
	adapter.now = func() time.Time { return fixedTime }
	adapter.open = func(dsn string) (*sql.DB, error) { return db, nil }

	return adapter, mock
}

func TestMySQLAdapterDump(t *testing.T) {
	adapter, mock := mockedMySQLAdapter(t)

	mock.ExpectPing()
	mock.ExpectQuery("SHOW TABLES").WillReturnRows(
		sqlmock.NewRows([]string{"Tables_in_app"}).AddRow("users").AddRow("audit_log"))
	mock.ExpectQuery("SHOW CREATE TABLE `users`").WillReturnRows(
		sqlmock.NewRows([]string{"Table", "Create Table"}).
			AddRow("users", "CREATE TABLE `users` (`id` int, `name` text)"))
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow("1", "Alice").
			AddRow("2", nil))

	outputDir := t.TempDir()
	target := backup.Target{
		Name:          "app-db",
		Kind:          backup.KindMySQL,
		Connection:    backup.ConnectionSpec{Database: "app"},
		TableFilter:   []string{"users"},
		IncludeSchema: true,
		IncludeData:   true,
	}

	result, err := adapter.Backup(context.Background(), target, outputDir)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	if result.OutputFile != "app-db_2026-02-03T04-05-06Z.sql" {
		t.Errorf("OutputFile = %q", result.OutputFile)
	}

	dump, err := os.ReadFile(filepath.Join(outputDir, result.OutputFile))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	text := string(dump)

	if result.SizeBytes != int64(len(dump)) {
		t.Errorf("SizeBytes = %d, artifact is %d bytes", result.SizeBytes, len(dump))
	}

	for _, want := range []string{
		"DROP TABLE IF EXISTS `users`;",
		"CREATE TABLE `users`",
		"INSERT INTO `users` VALUES ('1', 'Alice');",
		"INSERT INTO `users` VALUES ('2', NULL);",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("dump missing %q:\n%s", want, text)
		}
	}

	// audit_log is filtered out; no query for it may run and nothing of it
	// may appear in the dump.
	if strings.Contains(text, "audit_log") {
		t.Errorf("dump contains filtered table:\n%s", text)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMySQLAdapterSchemaOnly(t *testing.T) {
	adapter, mock := mockedMySQLAdapter(t)

	mock.ExpectPing()
	mock.ExpectQuery("SHOW TABLES").WillReturnRows(
		sqlmock.NewRows([]string{"Tables_in_app"}).AddRow("users"))
	mock.ExpectQuery("SHOW CREATE TABLE `users`").WillReturnRows(
		sqlmock.NewRows([]string{"Table", "Create Table"}).
			AddRow("users", "CREATE TABLE `users` (`id` int)"))

	target := backup.Target{
		Name:          "schema-only",
		Kind:          backup.KindMySQL,
		Connection:    backup.ConnectionSpec{Database: "app"},
		IncludeSchema: true,
	}

	outputDir := t.TempDir()
	result, err := adapter.Backup(context.Background(), target, outputDir)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	dump, err := os.ReadFile(filepath.Join(outputDir, result.OutputFile))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Contains(string(dump), "INSERT INTO") {
		t.Errorf("schema-only dump contains row data:\n%s", dump)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMySQLAdapterUnreachable(t *testing.T) {
	adapter, mock := mockedMySQLAdapter(t)
	mock.ExpectPing().WillReturnError(errors.New("dial tcp: connection refused"))

	target := backup.Target{
		Name:       "down",
		Kind:       backup.KindMySQL,
		Connection: backup.ConnectionSpec{Database: "app"},
	}

	_, err := adapter.Backup(context.Background(), target, t.TempDir())
	if err == nil {
		t.Fatal("Backup() against unreachable database returned nil error")
	}
	if !backup.IsErrorType(err, backup.BackupErrorTypeSourceNotFound) {
		t.Errorf("Backup() error = %v, want source-not-found", err)
	}
}

func TestMySQLDSN(t *testing.T) {
	tests := []struct {
		name string
		conn backup.ConnectionSpec
		want string
	}{
		{
			name: "full spec",
			conn: backup.ConnectionSpec{Host: "db.internal", Port: 3307, User: "backup", Password: "s3cret", Database: "app"},
			want: "backup:s3cret@tcp(db.internal:3307)/app",
		},
		{
			name: "defaults",
			conn: backup.ConnectionSpec{User: "root", Database: "app"},
			want: "root:@tcp(127.0.0.1:3306)/app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mysqlDSN(tt.conn); got != tt.want {
				t.Errorf("mysqlDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuoteSQLValue(t *testing.T) {
	tests := []struct {
		name  string
		value sql.RawBytes
		want  string
	}{
		{name: "nil is NULL", value: nil, want: "NULL"},
		{name: "plain string", value: sql.RawBytes("Alice"), want: "'Alice'"},
		{name: "quote escaped", value: sql.RawBytes("O'Brien"), want: `'O\'Brien'`},
		{name: "backslash escaped", value: sql.RawBytes(`a\b`), want: `'a\\b'`},
		{name: "newline escaped", value: sql.RawBytes("a\nb"), want: `'a\nb'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quoteSQLValue(tt.value); got != tt.want {
				t.Errorf("quoteSQLValue(%q) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}
