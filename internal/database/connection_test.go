package database

import "testing"

func TestDSNPostgres(t *testing.T) {
	cfg := ConnectionConfig{
		Driver: "postgres", Host: "db.internal", Port: 5432,
		Name: "deskmail", User: "svc", Password: "pw",
	}
	want := "host=db.internal port=5432 user=svc password=pw dbname=deskmail sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
}

func TestDSNPostgresSSLMode(t *testing.T) {
	cfg := ConnectionConfig{
		Driver: "postgres", Host: "db.internal", Port: 5432,
		Name: "deskmail", User: "svc", Password: "pw", SSLMode: "require",
	}
	if got := cfg.DSN(); got != "host=db.internal port=5432 user=svc password=pw dbname=deskmail sslmode=require" {
		t.Fatalf("unexpected DSN %q", got)
	}
}

func TestDSNMySQL(t *testing.T) {
	cfg := ConnectionConfig{
		Driver: "mysql", Host: "db.internal", Port: 3306,
		Name: "deskmail", User: "svc", Password: "pw",
	}
	want := "svc:pw@tcp(db.internal:3306)/deskmail?parseTime=true"
	if got := cfg.DSN(); got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
}
