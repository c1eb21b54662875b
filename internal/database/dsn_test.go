package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{
			name: "defaults",
			cfg:  Config{User: "partyd", Name: "audit"},
			want: "host=localhost port=5432 user=partyd dbname=audit TimeZone=UTC application_name=partyd-audit sslmode=disable",
		},
		{
			name: "overrides win over defaults",
			cfg: Config{
				User: "svc", Name: "audit", Host: "db.internal", Port: 6543, Password: "pw",
				Options: map[string]string{"sslmode": "require", "application_name": "partyd-eu"},
			},
			want: "host=db.internal port=6543 user=svc dbname=audit password=pw TimeZone=UTC application_name=partyd-eu sslmode=require",
		},
		{
			name: "explicit dsn is used verbatim",
			cfg:  Config{DSN: "postgres://svc@db/audit"},
			want: "postgres://svc@db/audit",
		},
		{name: "missing credentials", cfg: Config{Host: "db"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := buildPostgresDSN(tt.cfg)
			if tt.wantErr {
				require.ErrorContains(t, err, "postgres audit store")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, dsn)
		})
	}
}

func TestBuildMySQLDSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{
			name: "defaults",
			cfg:  Config{User: "partyd", Name: "audit"},
			want: "partyd@tcp(127.0.0.1:3306)/audit?charset=utf8mb4&loc=UTC&parseTime=True",
		},
		{
			name: "password and extra options",
			cfg: Config{
				User: "svc", Password: "pw", Name: "audit", Host: "db.internal", Port: 3307,
				Options: map[string]string{"tls": "skip-verify", "loc": "Local"},
			},
			want: "svc:pw@tcp(db.internal:3307)/audit?charset=utf8mb4&loc=Local&parseTime=True&tls=skip-verify",
		},
		{name: "missing credentials", cfg: Config{User: "svc"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := buildMySQLDSN(tt.cfg)
			if tt.wantErr {
				require.ErrorContains(t, err, "mysql audit store")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, dsn)
		})
	}
}
