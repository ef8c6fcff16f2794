package tokens

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// clientCredentialRow and userCredentialRow mirror a minimal Postgres schema
// for storing rotated credentials centrally instead of on a local filesystem,
// following the db-tag convention from the teacher's internal/auth/types.go.
type clientCredentialRow struct {
	ClientID     string `db:"client_id"`
	ClientSecret string `db:"client_secret"`
}

type userCredentialRow struct {
	Username string `db:"username"`
	Password string `db:"password"`
}

// SQLCredentialsProvider reads the current client/user credential row from a
// database on every call. It is the DB-backed sibling of
// FileCredentialsProvider, covering deployments that rotate credentials via a
// secrets table rather than a mounted file.
type SQLCredentialsProvider struct {
	db          *sqlx.DB
	clientQuery string
	userQuery   string
}

// NewSQLCredentialsProvider wraps an existing *sql.DB (already connected with
// the "postgres" driver) for credential lookups. clientQuery and userQuery
// must each return exactly one row with the columns above; callers typically
// scope them with a WHERE clause selecting the active/non-revoked row.
func NewSQLCredentialsProvider(db *sql.DB, clientQuery, userQuery string) *SQLCredentialsProvider {
	return &SQLCredentialsProvider{
		db:          sqlx.NewDb(db, "postgres"),
		clientQuery: clientQuery,
		userQuery:   userQuery,
	}
}

func (p *SQLCredentialsProvider) GetClientCredentials(ctx context.Context) (Credentials, error) {
	var row clientCredentialRow
	if err := p.db.GetContext(ctx, &row, p.clientQuery); err != nil {
		return Credentials{}, &CredentialsError{Kind: CredentialsIOError, Msg: "client credentials query", Err: err}
	}
	c := Credentials{ID: row.ClientID, Secret: row.ClientSecret}
	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

func (p *SQLCredentialsProvider) GetUserCredentials(ctx context.Context) (Credentials, error) {
	var row userCredentialRow
	if err := p.db.GetContext(ctx, &row, p.userQuery); err != nil {
		return Credentials{}, &CredentialsError{Kind: CredentialsIOError, Msg: "user credentials query", Err: err}
	}
	c := Credentials{ID: row.Username, Secret: row.Password}
	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}
